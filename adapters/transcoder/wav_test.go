package transcoder

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestParseWAV(t *testing.T) {
	pcm := make([]byte, 16000*2) // 1s of 16kHz mono silence
	audio, err := ParseWAV(EncodeWAV(pcm, 16000, 1))
	if err != nil {
		t.Fatalf("ParseWAV failed: %v", err)
	}

	if audio.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", audio.SampleRate)
	}
	if audio.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", audio.Channels)
	}
	if audio.DataOffset != 44 {
		t.Errorf("Expected data offset 44, got %d", audio.DataOffset)
	}
	if len(audio.PCM()) != len(pcm) {
		t.Errorf("Expected %d PCM bytes, got %d", len(pcm), len(audio.PCM()))
	}
	if audio.Duration() != time.Second {
		t.Errorf("Expected 1s, got %v", audio.Duration())
	}
}

func TestParseWAVSkipsExtraChunksAndClampsStreamedSize(t *testing.T) {
	pcm := make([]byte, 8000*2*2) // 1s of 8kHz stereo
	canonical := EncodeWAV(pcm, 8000, 2)

	// Insert a LIST chunk after fmt and mark data size unknown, like ffmpeg
	// does when writing to a pipe.
	list := append([]byte("LIST"), 4, 0, 0, 0, 'I', 'N', 'F', 'O')
	data := append([]byte{}, canonical[:36]...)
	data = append(data, list...)
	data = append(data, canonical[36:]...)
	sizeAt := 36 + len(list) + 4
	binary.LittleEndian.PutUint32(data[sizeAt:], 0xFFFFFFFF)

	audio, err := ParseWAV(data)
	if err != nil {
		t.Fatalf("ParseWAV failed: %v", err)
	}
	if audio.DataSize != len(pcm) {
		t.Errorf("Expected clamped data size %d, got %d", len(pcm), audio.DataSize)
	}
	if audio.Duration() != time.Second {
		t.Errorf("Expected 1s, got %v", audio.Duration())
	}
}

func TestParseWAVInvalid(t *testing.T) {
	valid := EncodeWAV(make([]byte, 100), 16000, 1)

	eightBit := append([]byte{}, valid...)
	binary.LittleEndian.PutUint16(eightBit[34:], 8)

	noData := append([]byte{}, valid[:36]...)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", append([]byte("RIFX"), valid[4:]...)},
		{"not wave", append(append([]byte{}, valid[:8]...), append([]byte("AVI "), valid[12:]...)...)},
		{"8-bit", eightBit},
		{"missing data", noData},
		{"webm bytes", []byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseWAV(tt.data); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
