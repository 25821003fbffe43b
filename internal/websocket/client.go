package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/usecase"
)

// ErrClientClosed is returned by Emit after the connection went away
var ErrClientClosed = errors.New("client connection closed")

// Client is a middleman between the websocket connection and its session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound frames. Never closed; writers select on
	// closed instead.
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once

	sessionID string
	session   *usecase.Session

	// Cancels the session worker and its in-flight utterance.
	cancel context.CancelFunc

	logger *zap.Logger
}

// Emit implements usecase.EventSink. It blocks while the send buffer is full
// so no event is dropped.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.closed:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
	})
}

// readPump pumps frames from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		default:
			c.reject(malformed("binary frames are not supported"))
		}
	}
}

// writePump pumps frames from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// processMessage hands a valid utterance to the session worker without
// waiting for it to run
func (c *Client) processMessage(message []byte) {
	utt, err := ParseUtterance(message, c.hub.config.DefaultFormat)
	if err != nil {
		c.reject(err)
		return
	}

	if err := c.session.Submit(utt); err != nil {
		if errors.Is(err, usecase.ErrSessionBusy) {
			c.hub.metrics.Rejected.Add(context.Background(), 1)
		}
		c.reject(err)
		return
	}

	c.logger.Debug("Utterance accepted",
		zap.Int("audioSize", len(utt.Audio)),
		zap.String("format", utt.Format),
		zap.String("voice", string(utt.Voice)))
}

// reject answers an inbound frame that did not start a run
func (c *Client) reject(err error) {
	c.logger.Warn("Inbound frame rejected", zap.Error(err))
	if emitErr := c.Emit(context.Background(), domain.EventError, domain.ErrorMessage{Message: err.Error()}); emitErr != nil {
		c.logger.Debug("Failed to deliver rejection", zap.Error(emitErr))
	}
}
