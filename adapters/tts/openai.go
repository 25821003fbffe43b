package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

const (
	openAIMaxChars     = 4096
	defaultOpenAIVoice = "alloy"
)

var openAIVoices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true, "echo": true, "fable": true,
	"onyx": true, "nova": true, "sage": true, "shimmer": true, "verse": true,
}

// OpenAIConfig configures the OpenAI speech backend
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Voice     string // used when the utterance names no voice
	ChunkSize int
	Mode      Mode
}

// OpenAITTS implements TextToSpeech with the OpenAI speech endpoint. It
// always produces mp3.
type OpenAITTS struct {
	client    oai.Client
	model     string
	voice     string
	chunkSize int
	mode      Mode
	logger    *zap.Logger
}

func NewOpenAITTS(cfg OpenAIConfig, logger *zap.Logger) (*OpenAITTS, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai speech: api key must not be empty")
	}
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = string(oai.SpeechModelTTS1)
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultOpenAIVoice
	}
	if !openAIVoices[cfg.Voice] {
		return nil, fmt.Errorf("openai speech: unknown default voice %q", cfg.Voice)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAITTS{
		client:    oai.NewClient(opts...),
		model:     cfg.Model,
		voice:     cfg.Voice,
		chunkSize: cfg.ChunkSize,
		mode:      mode,
		logger:    logger,
	}, nil
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (o *OpenAITTS) ConvertTextToSpeech(ctx context.Context, text string, voice entities.VoiceIdentity) (*entities.AudioStream, error) {
	name := strings.ToLower(string(voice))
	if name == "" {
		name = o.voice
	}
	if !openAIVoices[name] {
		return nil, &domain.SynthesisServiceError{Voice: name, StatusCode: http.StatusNotFound, Message: "unknown voice"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &domain.SynthesisServiceError{Voice: name, Message: "text cannot be empty"}
	}
	if n := utf8.RuneCountInString(text); n > openAIMaxChars {
		return nil, &domain.SynthesisServiceError{
			Voice:   name,
			Message: fmt.Sprintf("text is %d characters, limit is %d", n, openAIMaxChars),
		}
	}

	resp, err := o.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          text,
		Model:          oai.SpeechModel(o.model),
		Voice:          oai.AudioSpeechNewParamsVoice(name),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, &domain.SynthesisServiceError{Voice: name, StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
		}
		return nil, &domain.SynthesisServiceError{Voice: name, Err: err}
	}

	format := entities.AudioFormat{Container: "mp3", Codec: "mp3", MIMEType: "audio/mpeg", SampleRate: 24000}
	wrap := func(err error) error {
		return &domain.SynthesisServiceError{Voice: name, Message: "reading audio", Err: err}
	}

	if o.mode == ModeStream {
		return entities.NewAudioStream(format, readChunks(resp.Body, o.chunkSize, wrap), resp.Body), nil
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(err)
	}
	o.logger.Debug("Synthesized audio",
		zap.String("voice", name),
		zap.Int("textLength", len(text)),
		zap.Int("audioBytes", len(data)))
	return entities.NewBufferedAudioStream(format, data), nil
}
