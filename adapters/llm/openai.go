package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/repositories"
)

const unknownError = "Unknown error"

// OpenAIConfig configures the chat completions backend
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAILLM implements LargeLanguageModel with OpenAI chat completions
type OpenAILLM struct {
	client oai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAILLM(cfg OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	// The pipeline owns retry policy, which is none
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAILLM{
		client: oai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Generate implements repositories.LargeLanguageModel
func (o *OpenAILLM) Generate(ctx context.Context, req repositories.GenerateRequest) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.buildParams(req))
	if err != nil {
		return "", o.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &domain.BackendProtocolError{Reason: "response has no choices"}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &domain.BackendProtocolError{Reason: "first choice has no message content"}
	}

	o.logger.Debug("Completion received",
		zap.String("model", resp.Model),
		zap.Int64("promptTokens", resp.Usage.PromptTokens),
		zap.Int64("completionTokens", resp.Usage.CompletionTokens))

	return content, nil
}

func (o *OpenAILLM) buildParams(req repositories.GenerateRequest) oai.ChatCompletionNewParams {
	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, oai.UserMessage(req.Prompt))

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    messages,
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params
}

func (o *OpenAILLM) mapError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = unknownError
		}
		return &domain.BackendHTTPError{StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &domain.BackendProtocolError{Reason: err.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.BackendHTTPError{Message: err.Error(), Err: err}
}
