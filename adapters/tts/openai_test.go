package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicechat/domain"
)

func newOpenAITTS(t *testing.T, handler http.HandlerFunc, mode Mode) *OpenAITTS {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAITTS(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/", Mode: mode, ChunkSize: 3}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create OpenAITTS: %v", err)
	}
	return o
}

func TestOpenAITTS_Synthesize(t *testing.T) {
	for _, mode := range []Mode{ModeBatch, ModeStream} {
		t.Run(string(mode), func(t *testing.T) {
			o := newOpenAITTS(t, func(rw http.ResponseWriter, r *http.Request) {
				var body struct {
					Input          string `json:"input"`
					Model          string `json:"model"`
					Voice          string `json:"voice"`
					ResponseFormat string `json:"response_format"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body.Model != "tts-1" || body.Voice != "nova" || body.ResponseFormat != "mp3" {
					t.Errorf("Unexpected request %+v", body)
				}
				rw.Header().Set("Content-Type", "audio/mpeg")
				_, _ = rw.Write([]byte("ID3-audio"))
			}, mode)

			stream, err := o.ConvertTextToSpeech(context.Background(), "hello", "nova")
			if err != nil {
				t.Fatalf("ConvertTextToSpeech failed: %v", err)
			}
			out, err := stream.Collect(nil)
			if err != nil {
				t.Fatalf("Collect failed: %v", err)
			}
			if string(out.Data) != "ID3-audio" {
				t.Errorf("Expected ID3-audio, got %q", out.Data)
			}
		})
	}
}

func TestOpenAITTS_Errors(t *testing.T) {
	var calls atomic.Int32
	o := newOpenAITTS(t, func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}, ModeBatch)
	ctx := context.Background()

	_, err := o.ConvertTextToSpeech(ctx, "hello", "robot")
	var synthErr *domain.SynthesisServiceError
	if !errors.As(err, &synthErr) || synthErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected unknown voice to be rejected, got %v", err)
	}

	if _, err := o.ConvertTextToSpeech(ctx, strings.Repeat("b", openAIMaxChars+1), "alloy"); domain.Kind(err) != domain.KindSynthesisService {
		t.Errorf("Expected over-limit text to be rejected, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected validation before calling the backend, got %d calls", calls.Load())
	}

	_, err = o.ConvertTextToSpeech(ctx, "hello", "alloy")
	if !errors.As(err, &synthErr) || synthErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 SynthesisServiceError, got %v", err)
	}
}

func TestMockTTS(t *testing.T) {
	m := NewMockTTS(ModeStream, zaptest.NewLogger(t), "known")

	stream, err := m.ConvertTextToSpeech(context.Background(), "a reply long enough to span chunks", "known")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}
	chunks := 0
	out, err := stream.Collect(func(int, []byte) error { chunks++; return nil })
	if err != nil || len(out.Data) == 0 {
		t.Fatalf("Expected audio, got %v", err)
	}
	if chunks < 2 {
		t.Errorf("Expected several chunks, got %d", chunks)
	}

	if _, err := m.ConvertTextToSpeech(context.Background(), "hi", "unknown"); domain.Kind(err) != domain.KindSynthesisService {
		t.Errorf("Expected unknown voice to fail, got %v", err)
	}
}

func TestFormatFromOutput(t *testing.T) {
	f := formatFromOutput("pcm_24000")
	if f.Codec != "pcm_s16le" || f.SampleRate != 24000 || f.MIMEType != "audio/pcm" {
		t.Errorf("Unexpected format %+v", f)
	}
	f = formatFromOutput("mp3_44100_128")
	if f.Container != "mp3" || f.SampleRate != 44100 {
		t.Errorf("Unexpected format %+v", f)
	}
}
