package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "mp3_22050_32"
	defaultModelID      = "eleven_multilingual_v2"
	elevenLabsMaxChars  = 5000
	maxErrorBody        = 4096
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter.
// Only APIKey is required. Stability and Clarity are sent as given, so zero
// is a usable setting.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string // used when the utterance names no voice
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64 // similarity_boost
	Mode         Mode
}

// ElevenLabsTTS implements TextToSpeech using the Eleven Labs API
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	chunkSize    int
	stability    float64
	clarity      float64
	mode         Mode
	client       *http.Client
	logger       *zap.Logger
}

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings ElevenLabsVoiceSettings `json:"voice_settings"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if _, err := ParseMode(string(config.Mode)); err != nil {
		return err
	}
	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	e := &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   strings.TrimRight(config.APIBaseURL, "/"),
		voiceID:      config.VoiceID,
		modelID:      config.ModelID,
		outputFormat: config.OutputFormat,
		chunkSize:    config.ChunkSize,
		stability:    config.Stability,
		clarity:      config.Clarity,
		client:       &http.Client{},
		logger:       logger,
	}
	e.mode, _ = ParseMode(string(config.Mode))
	if e.apiBaseURL == "" {
		e.apiBaseURL = defaultAPIBaseURL
	}
	if e.voiceID == "" {
		e.voiceID = defaultVoiceID
	}
	if e.modelID == "" {
		e.modelID = defaultModelID
	}
	if e.outputFormat == "" {
		e.outputFormat = defaultOutputFormat
	}
	if e.chunkSize == 0 {
		e.chunkSize = defaultChunkSize
	}

	logger.Info("Eleven Labs synthesizer configured",
		zap.String("modelID", e.modelID),
		zap.String("outputFormat", e.outputFormat),
		zap.String("mode", string(e.mode)))

	return e, nil
}

// ConvertTextToSpeech implements repositories.TextToSpeech. The request is
// issued before returning so that status errors surface immediately; in
// stream mode the body is then yielded as it arrives.
func (e *ElevenLabsTTS) ConvertTextToSpeech(ctx context.Context, text string, voice entities.VoiceIdentity) (*entities.AudioStream, error) {
	voiceID := string(voice)
	if voiceID == "" {
		voiceID = e.voiceID
	}
	if strings.TrimSpace(text) == "" {
		return nil, &domain.SynthesisServiceError{Voice: voiceID, Message: "text cannot be empty"}
	}
	if n := utf8.RuneCountInString(text); n > elevenLabsMaxChars {
		return nil, &domain.SynthesisServiceError{
			Voice:   voiceID,
			Message: fmt.Sprintf("text is %d characters, limit is %d", n, elevenLabsMaxChars),
		}
	}

	resp, err := e.post(ctx, text, voiceID)
	if err != nil {
		return nil, err
	}

	format := formatFromOutput(e.outputFormat)
	wrap := func(err error) error {
		return &domain.SynthesisServiceError{Voice: voiceID, Message: "reading audio", Err: err}
	}

	if e.mode == ModeStream {
		return entities.NewAudioStream(format, readChunks(resp.Body, e.chunkSize, wrap), resp.Body), nil
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(err)
	}
	e.logger.Debug("Synthesized audio",
		zap.String("voiceID", voiceID),
		zap.Int("textLength", len(text)),
		zap.Int("audioBytes", len(data)))
	return entities.NewBufferedAudioStream(format, data), nil
}

func (e *ElevenLabsTTS) post(ctx context.Context, text, voiceID string) (*http.Response, error) {
	body, err := json.Marshal(ElevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.apiBaseURL, url.PathEscape(voiceID))
	if e.mode == ModeStream {
		endpoint += "/stream"
	}
	endpoint += "?output_format=" + url.QueryEscape(e.outputFormat)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", formatFromOutput(e.outputFormat).MIMEType)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.SynthesisServiceError{Voice: voiceID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e.logger.Warn("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("voiceID", voiceID))
		return nil, &domain.SynthesisServiceError{
			Voice:      voiceID,
			StatusCode: resp.StatusCode,
			Message:    elevenLabsErrorMessage(errorBody),
		}
	}
	return resp, nil
}

// elevenLabsErrorMessage extracts detail.message (or a string detail) from an
// error body
func elevenLabsErrorMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "Unknown error"
	}
	return msg
}

// ListVoices retrieves the voices available to the account
func (e *ElevenLabsTTS) ListVoices(ctx context.Context) ([]entities.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiBaseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("API returned error %d: %s", resp.StatusCode, elevenLabsErrorMessage(errorBody))
	}

	var voicesResponse struct {
		Voices []struct {
			VoiceID     string `json:"voice_id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Category    string `json:"category"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	voices := make([]entities.Voice, 0, len(voicesResponse.Voices))
	for _, v := range voicesResponse.Voices {
		description := v.Description
		if description == "" {
			description = v.Category
		}
		voices = append(voices, entities.Voice{Name: v.Name, Description: description, VoiceID: v.VoiceID})
	}

	e.logger.Info("Retrieved available voices", zap.Int("count", len(voices)))
	return voices, nil
}
