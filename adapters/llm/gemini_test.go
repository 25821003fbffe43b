package llm

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/satriahrh/voicechat/domain"
)

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{}); err == nil {
		t.Error("Expected error for missing API key")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{"nil", nil, "", true},
		{"no candidates", &genai.GenerateContentResponse{}, "", true},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, "", true},
		{
			"joined parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "Hello, "}, {Text: "friend."}}},
			}}},
			"Hello, friend.",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractText(tt.resp)
			if tt.wantErr {
				if domain.Kind(err) != domain.KindBackendProtocol {
					t.Errorf("Expected backend_protocol, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("extractText() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestMapGeminiError(t *testing.T) {
	err := mapGeminiError(errors.New("connection reset"))
	if domain.Kind(err) != domain.KindBackendHTTP {
		t.Errorf("Expected backend_http, got %s", domain.Kind(err))
	}

	if err := mapGeminiError(context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline to pass through, got %v", err)
	}
}
