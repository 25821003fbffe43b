package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain/repositories"
	"github.com/satriahrh/voicechat/internal/auth"
	"github.com/satriahrh/voicechat/internal/websocket"
)

const serviceName = "voicechat"

// Dependencies are the collaborators served over HTTP. Auth nil disables
// token checks; Metrics nil disables /metrics.
type Dependencies struct {
	Hub     *websocket.Hub
	Voices  repositories.VoiceRepository
	Auth    *auth.Authenticator
	Metrics http.Handler
	Logger  *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:         "ok",
			Service:        serviceName,
			ActiveSessions: len(deps.Hub.ActiveSessions()),
			Time:           time.Now().UTC(),
		})
	})

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.GET("/voices", func(c echo.Context) error {
		return listVoices(c, deps.Voices, logger)
	})

	// WebSocket endpoint
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(deps.Hub, deps.Auth, c, logger)
	})
}

func listVoices(c echo.Context, repo repositories.VoiceRepository, logger *zap.Logger) error {
	voices, err := repo.List(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list voices", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list voices",
		})
	}

	resp := make([]VoiceResponse, 0, len(voices))
	for _, v := range voices {
		resp = append(resp, newVoiceResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}

// websocketWithAuth checks the token, when authentication is enabled, before
// upgrading
func websocketWithAuth(hub *websocket.Hub, authenticator *auth.Authenticator, c echo.Context, logger *zap.Logger) error {
	if authenticator == nil {
		return hub.HandleWebSocket(c, "")
	}

	claims, err := authenticator.Authenticate(c.Request())
	if errors.Is(err, auth.ErrMissingToken) {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header or token parameter",
		})
	}
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	logger.Info("WebSocket connection authenticated", zap.String("subject", claims.Subject))
	return hub.HandleWebSocket(c, claims.Subject)
}
