package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/internal/observe"
	"github.com/satriahrh/voicechat/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Default maximum message size allowed from peer. Utterances arrive as a
	// single base64 frame, so this bounds the recording length.
	defaultMaxMessageSize = 10 << 20

	// Outbound frames buffered per session.
	sendBuffer = 64
)

// ErrHubStopped is returned when a connection arrives after shutdown began
var ErrHubStopped = errors.New("hub stopped")

// HubConfig configures the session transport
type HubConfig struct {
	QueueDepth     int
	DefaultFormat  string
	MaxMessageSize int64
	AllowedOrigins []string
}

// Hub maintains the set of active sessions. Events are delivered only to the
// session that produced them.
type Hub struct {
	// Registered clients by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	upgrader websocket.Upgrader
	pipeline *usecase.ConversationService
	config   HubConfig
	metrics  *observe.Metrics
	logger   *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(pipeline *usecase.ConversationService, config HubConfig, metrics *observe.Metrics, logger *zap.Logger) *Hub {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}
	if config.DefaultFormat == "" {
		config.DefaultFormat = "webm"
	}
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		pipeline:   pipeline,
		config:     config,
		metrics:    metrics,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return h
}

// Run starts the hub's main loop. When ctx is done every session is closed,
// which cancels its in-flight utterance.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.metrics.ActiveSessions.Add(ctx, 1)
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.sessionID]
			delete(h.clients, client.sessionID)
			h.mu.Unlock()
			if ok {
				h.metrics.ActiveSessions.Add(ctx, -1)
			}
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// ActiveSessions returns the IDs of the connected sessions
func (h *Hub) ActiveSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// HandleWebSocket upgrades the request and starts a session for it. subject
// is the authenticated caller, empty when authentication is disabled.
func (h *Hub) HandleWebSocket(c echo.Context, subject string) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	sessionID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		closed:    make(chan struct{}),
		sessionID: sessionID,
		cancel:    cancel,
		logger:    h.logger.With(zap.String("sessionID", sessionID), zap.String("subject", subject)),
	}
	client.session = h.pipeline.NewSession(sessionID, client, h.config.QueueDepth)

	select {
	case h.register <- client:
	case <-h.done:
		cancel()
		conn.Close()
		return ErrHubStopped
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
	go client.session.Run(ctx)

	return nil
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}
