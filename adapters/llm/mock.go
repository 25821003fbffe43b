package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/satriahrh/voicechat/domain/repositories"
)

// MockLLM is a placeholder implementation for the completion backend
type MockLLM struct{}

// NewMockLLM creates a new mock completion backend
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Generate implements repositories.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, req repositories.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "I did not catch that. Could you say it again?", nil
	}
	return fmt.Sprintf("You said: %s", prompt), nil
}
