package repositories

import (
	"context"

	"github.com/satriahrh/voicechat/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts canonical audio to text. Unrecognized speech
	// returns "" with a nil error; service failures are
	// *domain.TranscriptionServiceError.
	TranscribeAudio(ctx context.Context, audio entities.CanonicalAudio, language string) (string, error)
}
