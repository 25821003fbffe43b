package repositories

import (
	"context"

	"github.com/satriahrh/voicechat/domain/entities"
)

// AudioTranscoder turns a compressed audio blob into canonical WAV
type AudioTranscoder interface {
	// DecodeToWAV decodes raw using formatHint as the container hint.
	// Failures are *domain.DecodeError.
	DecodeToWAV(ctx context.Context, raw []byte, formatHint string) (entities.CanonicalAudio, error)
}
