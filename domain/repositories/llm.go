package repositories

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Generate returns the model's reply. Non-success responses are
	// *domain.BackendHTTPError, malformed ones *domain.BackendProtocolError.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is one completion call
type GenerateRequest struct {
	SystemPrompt string  `json:"system_prompt"`
	Prompt       string  `json:"prompt"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
}
