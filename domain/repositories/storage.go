package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/voicechat/domain/entities"
)

// ErrVoiceNotFound is returned when no catalog entry matches
var ErrVoiceNotFound = errors.New("voice not found")

// VoiceRepository defines data access methods for the voice catalog
type VoiceRepository interface {
	List(ctx context.Context) ([]*entities.Voice, error)
	GetByVoiceID(ctx context.Context, voiceID string) (*entities.Voice, error)
	Create(ctx context.Context, voice *entities.Voice) error
}
