package stt

import (
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain/entities"
)

// silenceRMS is the level below which 16-bit audio counts as silence
const silenceRMS = 100

// MockSpeechToText recognizes a fixed phrase in any non-silent audio
type MockSpeechToText struct {
	transcript string
	logger     *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(transcript string, logger *zap.Logger) *MockSpeechToText {
	if transcript == "" {
		transcript = "hello"
	}
	return &MockSpeechToText{transcript: transcript, logger: logger}
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audio entities.CanonicalAudio, language string) (string, error) {
	level := rms(audio.PCM())
	s.logger.Info("Processing speech-to-text",
		zap.Int("sampleRate", audio.SampleRate),
		zap.Duration("audioDuration", audio.Duration()),
		zap.Float64("rms", level),
		zap.String("language", language))

	if level < silenceRMS {
		return "", nil
	}
	return s.transcript, nil
}

// rms is the root mean square of little-endian 16-bit samples
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
