package api

import (
	"time"

	"github.com/satriahrh/voicechat/domain/entities"
)

// VoiceResponse is one catalog entry
type VoiceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	VoiceID     string `json:"voice_id"`
}

func newVoiceResponse(v *entities.Voice) VoiceResponse {
	return VoiceResponse{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		VoiceID:     v.VoiceID,
	}
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	ActiveSessions int       `json:"active_sessions"`
	Time           time.Time `json:"time"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
