package stt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

const providerWhisper = "whisper"

// WhisperConfig configures the OpenAI transcription backend
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperSpeechToText implements SpeechToText with the OpenAI audio API
type WhisperSpeechToText struct {
	client oai.Client
	model  string
	logger *zap.Logger
}

func NewWhisperSpeechToText(cfg WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("whisper: api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = string(oai.AudioModelWhisper1)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &WhisperSpeechToText{
		client: oai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (w *WhisperSpeechToText) TranscribeAudio(ctx context.Context, audio entities.CanonicalAudio, language string) (string, error) {
	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio.WAV), "audio.wav", "audio/wav"),
		Model: oai.AudioModel(w.model),
	}
	if lang := primarySubtag(language); lang != "" {
		params.Language = oai.String(lang)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &domain.TranscriptionServiceError{Provider: providerWhisper, Err: err}
	}

	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		w.logger.Debug("No speech recognized", zap.Duration("audioDuration", audio.Duration()))
	}
	return transcript, nil
}

// primarySubtag maps a BCP-47 tag such as ru-RU to the ISO-639-1 code Whisper expects
func primarySubtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
