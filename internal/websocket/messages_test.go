package websocket

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/satriahrh/voicechat/domain"
)

func TestParseUtterance(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte("OggS-bytes"))

	tests := []struct {
		name       string
		frame      string
		wantErr    bool
		wantFormat string
	}{
		{
			name:       "valid with default format",
			frame:      `{"event":"audio_stream","data":{"audio":"` + audio + `","voice":"v1"}}`,
			wantFormat: "webm",
		},
		{
			name:       "valid with explicit format",
			frame:      `{"event":"audio_stream","data":{"audio":"` + audio + `","voice":"v1","format":"OGG"}}`,
			wantFormat: "ogg",
		},
		{
			name:       "mp4 family",
			frame:      `{"event":"audio_stream","data":{"audio":"` + audio + `","voice":"v1","format":"m4a"}}`,
			wantFormat: "m4a",
		},
		{
			name:    "playlist format",
			frame:   `{"event":"audio_stream","data":{"audio":"` + audio + `","voice":"v1","format":"hls"}}`,
			wantErr: true,
		},
		{
			name:    "file list format",
			frame:   `{"event":"audio_stream","data":{"audio":"` + audio + `","voice":"v1","format":"concat"}}`,
			wantErr: true,
		},
		{
			name:    "format with arguments",
			frame:   `{"event":"audio_stream","data":{"audio":"` + audio + `","voice":"v1","format":"webm -i /etc/passwd"}}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			frame:   `{"event":"audio_stream",`,
			wantErr: true,
		},
		{
			name:    "missing event",
			frame:   `{"data":{"audio":"` + audio + `","voice":"v1"}}`,
			wantErr: true,
		},
		{
			name:    "unknown event",
			frame:   `{"event":"listening_start","data":{}}`,
			wantErr: true,
		},
		{
			name:    "missing data",
			frame:   `{"event":"audio_stream"}`,
			wantErr: true,
		},
		{
			name:    "bad base64",
			frame:   `{"event":"audio_stream","data":{"audio":"not base64!","voice":"v1"}}`,
			wantErr: true,
		},
		{
			name:    "empty audio",
			frame:   `{"event":"audio_stream","data":{"audio":"","voice":"v1"}}`,
			wantErr: true,
		},
		{
			name:    "missing voice",
			frame:   `{"event":"audio_stream","data":{"audio":"` + audio + `"}}`,
			wantErr: true,
		},
		{
			name:    "data of wrong type",
			frame:   `{"event":"audio_stream","data":"hello"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			utt, err := ParseUtterance([]byte(tt.frame), "webm")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUtterance() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("Expected ErrMalformedFrame, got %v", err)
				}
				return
			}
			if utt.Format != tt.wantFormat {
				t.Errorf("Expected format %s, got %s", tt.wantFormat, utt.Format)
			}
			if string(utt.Audio) != "OggS-bytes" {
				t.Errorf("Unexpected audio %q", utt.Audio)
			}
			if utt.Voice != "v1" {
				t.Errorf("Unexpected voice %q", utt.Voice)
			}
			if utt.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should be set")
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	frame, err := encodeEvent(domain.EventPartialResponse, domain.PartialResponse{Sender: domain.SenderAI, Text: "hi"})
	if err != nil {
		t.Fatalf("encodeEvent failed: %v", err)
	}

	var parsed struct {
		Event string `json:"event"`
		Data  struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(frame, &parsed); err != nil {
		t.Fatalf("Invalid frame %s: %v", frame, err)
	}
	if parsed.Event != domain.EventPartialResponse || parsed.Data.Sender != "ai" || parsed.Data.Text != "hi" {
		t.Errorf("Unexpected frame %s", frame)
	}
}
