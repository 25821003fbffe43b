package tts

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

// MockTTS returns deterministic fake mp3 bytes. When voices is non-empty any
// other voice is rejected the way a real backend rejects an unknown voice.
type MockTTS struct {
	voices    map[entities.VoiceIdentity]bool
	mode      Mode
	chunkSize int
	logger    *zap.Logger
}

func NewMockTTS(mode Mode, logger *zap.Logger, voices ...entities.VoiceIdentity) *MockTTS {
	known := make(map[entities.VoiceIdentity]bool, len(voices))
	for _, v := range voices {
		known[v] = true
	}
	return &MockTTS{voices: known, mode: mode, chunkSize: 16, logger: logger}
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (m *MockTTS) ConvertTextToSpeech(ctx context.Context, text string, voice entities.VoiceIdentity) (*entities.AudioStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.voices) > 0 && !m.voices[voice] {
		return nil, &domain.SynthesisServiceError{Voice: string(voice), StatusCode: http.StatusNotFound, Message: "voice not found"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &domain.SynthesisServiceError{Voice: string(voice), Message: "text cannot be empty"}
	}

	m.logger.Info("Mock synthesis", zap.String("voice", string(voice)), zap.Int("textLength", len(text)))

	data := append([]byte("ID3"), []byte(text)...)
	format := entities.AudioFormat{Container: "mp3", Codec: "mp3", MIMEType: "audio/mpeg"}
	if m.mode != ModeStream {
		return entities.NewBufferedAudioStream(format, data), nil
	}
	return entities.NewAudioStream(format, func(yield func([]byte, error) bool) {
		for start := 0; start < len(data); start += m.chunkSize {
			end := min(start+m.chunkSize, len(data))
			if !yield(data[start:end], nil) {
				return
			}
		}
	}, nil), nil
}
