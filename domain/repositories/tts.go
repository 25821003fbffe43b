package repositories

import (
	"context"

	"github.com/satriahrh/voicechat/domain/entities"
)

// TextToSpeech produces audio for a text in the given voice. Batch
// implementations return a single-chunk stream; streaming implementations
// yield chunks as the backend sends them. Failures, including failures
// surfaced while iterating, are *domain.SynthesisServiceError.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string, voice entities.VoiceIdentity) (*entities.AudioStream, error)
}
