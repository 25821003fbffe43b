// Command voiceclient sends one recorded utterance to the server and prints
// the events it gets back. The reply audio is written to -out.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/internal/auth"
)

func main() {
	var (
		serverURL = flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
		file      = flag.String("file", "", "audio file to send (required)")
		voice     = flag.String("voice", "", "voice identity (required)")
		format    = flag.String("format", "", "container hint; defaults to the file extension")
		token     = flag.String("token", "", "bearer token")
		secret    = flag.String("secret", os.Getenv("JWT_SECRET"), "sign a token with this secret when -token is empty")
		out       = flag.String("out", "reply.mp3", "where to write the reply audio")
		timeout   = flag.Duration("timeout", 2*time.Minute, "give up after this long")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *file == "" || *voice == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if *token == "" && *secret != "" {
		a, err := auth.NewAuthenticator(*secret)
		if err != nil {
			logger.Fatal("Invalid secret", zap.Error(err))
		}
		if *token, err = a.GenerateToken("voiceclient", time.Hour); err != nil {
			logger.Fatal("Failed to sign token", zap.Error(err))
		}
	}

	if err := run(ctx, *serverURL, *token, *file, *voice, *format, *out, logger); err != nil {
		logger.Fatal("Conversation failed", zap.Error(err))
	}
}

func run(ctx context.Context, serverURL, token, file, voice, format, out string, logger *zap.Logger) error {
	audio, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	}

	headers := http.Header{}
	if token != "" {
		headers.Add("Authorization", "Bearer "+token)
	}

	logger.Info("Connecting", zap.String("url", serverURL))
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, serverURL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends
	go func() {
		<-ctx.Done()
		conn.SetReadDeadline(time.Now())
	}()

	data, err := json.Marshal(domain.AudioStreamRequest{
		Audio:  base64.StdEncoding.EncodeToString(audio),
		Voice:  voice,
		Format: format,
	})
	if err != nil {
		return err
	}
	frame, err := json.Marshal(domain.Envelope{Event: domain.EventAudioStream, Data: data})
	if err != nil {
		return err
	}

	start := time.Now()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send utterance: %w", err)
	}
	logger.Info("Utterance sent", zap.Int("audioSize", len(audio)), zap.String("format", format))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		var env domain.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Warn("Ignoring unparsable frame", zap.Error(err))
			continue
		}

		elapsed := zap.Duration("elapsed", time.Since(start))
		switch env.Event {
		case domain.EventPartialResponse:
			var p domain.PartialResponse
			_ = json.Unmarshal(env.Data, &p)
			logger.Info("Partial response", zap.String("sender", p.Sender), zap.String("text", p.Text), elapsed)

		case domain.EventAudioChunk:
			var c domain.AudioChunk
			_ = json.Unmarshal(env.Data, &c)
			logger.Debug("Audio chunk", zap.Int("seq", c.Seq), elapsed)

		case domain.EventAudioResponse:
			var a domain.AudioResponse
			if err := json.Unmarshal(env.Data, &a); err != nil {
				return fmt.Errorf("decode audio_response: %w", err)
			}
			reply, err := base64.StdEncoding.DecodeString(a.Audio)
			if err != nil {
				return fmt.Errorf("decode reply audio: %w", err)
			}
			if err := os.WriteFile(out, reply, 0o644); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
			logger.Info("Reply saved", zap.String("path", out), zap.Int("size", len(reply)), zap.String("format", a.Format), elapsed)
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case domain.EventError:
			var e domain.ErrorMessage
			_ = json.Unmarshal(env.Data, &e)
			return errors.New(e.Message)

		default:
			logger.Warn("Unknown event", zap.String("event", env.Event))
		}
	}
}
