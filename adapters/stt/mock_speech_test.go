package stt

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicechat/adapters/transcoder"
)

func TestMockSpeechToText(t *testing.T) {
	s := NewMockSpeechToText("hello", zaptest.NewLogger(t))
	ctx := context.Background()

	silence, _ := transcoder.ParseWAV(transcoder.EncodeWAV(make([]byte, 32000), 16000, 1))
	text, err := s.TranscribeAudio(ctx, silence, "en-US")
	if err != nil {
		t.Fatalf("Expected no error for silence, got %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty transcript for silence, got %q", text)
	}

	tone := make([]byte, 32000)
	for i := 0; i < len(tone)/2; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(tone[2*i:], uint16(v))
	}
	speech, _ := transcoder.ParseWAV(transcoder.EncodeWAV(tone, 16000, 1))
	text, err = s.TranscribeAudio(ctx, speech, "en-US")
	if err != nil {
		t.Fatalf("TranscribeAudio failed: %v", err)
	}
	if text != "hello" {
		t.Errorf("Expected hello, got %q", text)
	}
}
