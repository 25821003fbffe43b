package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/repositories"
)

const (
	defaultOpenAIModel = "gpt-4"
	defaultGeminiModel = "gemini-2.0-flash"
)

// GeminiConfig configures the Gemini backend
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	return nil
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", config.Model))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		logger: logger,
		model:  config.Model,
	}, nil
}

// Generate implements repositories.LargeLanguageModel
func (g *GeminiLLM) Generate(ctx context.Context, req repositories.GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", mapGeminiError(err)
	}

	text, err := extractText(response)
	if err != nil {
		return "", err
	}

	g.logger.Debug("Gemini response received",
		zap.String("model", g.model),
		zap.Int("replyLength", len(text)))
	return text, nil
}

func extractText(response *genai.GenerateContentResponse) (string, error) {
	if response == nil || len(response.Candidates) == 0 {
		return "", &domain.BackendProtocolError{Reason: "response has no candidates"}
	}
	candidate := response.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &domain.BackendProtocolError{Reason: "first candidate has no content"}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &domain.BackendProtocolError{Reason: "first candidate has no text"}
	}
	return text, nil
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return backendError(apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return backendError(apiErrPtr.Code, apiErrPtr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.BackendHTTPError{Message: err.Error(), Err: err}
}

func backendError(code int, message string, err error) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = unknownError
	}
	return &domain.BackendHTTPError{StatusCode: code, Message: message, Err: err}
}
