package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/repositories"
)

var (
	_ repositories.LargeLanguageModel = &OpenAILLM{}
	_ repositories.LargeLanguageModel = &GeminiLLM{}
	_ repositories.LargeLanguageModel = &MockLLM{}
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "Hi there!"}
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func newOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAILLM {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAILLM(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create OpenAI client: %v", err)
	}
	return o
}

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOpenAILLM_Generate(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []chatRequest
	)
	o := newOpenAI(t, func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(completionBody))
	})

	ctx := context.Background()
	for _, prompt := range []string{"hello", "a much longer and very different question about the weather"} {
		reply, err := o.Generate(ctx, repositories.GenerateRequest{
			SystemPrompt: "You are a voice assistant.",
			Prompt:       prompt,
			MaxTokens:    300,
			Temperature:  0.9,
		})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if reply != "Hi there!" {
			t.Errorf("Expected reply, got %q", reply)
		}
	}

	if len(requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(requests))
	}
	for i, req := range requests {
		if req.Model != "gpt-4" {
			t.Errorf("Request %d: expected model gpt-4, got %s", i, req.Model)
		}
		if req.MaxTokens != 300 {
			t.Errorf("Request %d: expected max_tokens 300, got %d", i, req.MaxTokens)
		}
		if req.Temperature != 0.9 {
			t.Errorf("Request %d: expected temperature 0.9, got %v", i, req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[0].Content != "You are a voice assistant." {
			t.Errorf("Request %d: expected system persona first, got %+v", i, req.Messages)
		}
	}
}

func TestOpenAILLM_BackendHTTPError(t *testing.T) {
	var calls atomic.Int32
	o := newOpenAI(t, func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusInternalServerError)
		_, _ = rw.Write([]byte(`{"error":{"message":"The server had an error","type":"server_error"}}`))
	})

	_, err := o.Generate(context.Background(), repositories.GenerateRequest{Prompt: "hello", MaxTokens: 300, Temperature: 0.9})

	var httpErr *domain.BackendHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected BackendHTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", httpErr.StatusCode)
	}
	if httpErr.Message == "" {
		t.Error("Expected a message")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected no retries, got %d calls", calls.Load())
	}
}

func TestOpenAILLM_BackendProtocolError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"id":"x","object":"chat.completion","created":0,"model":"gpt-4","choices":[]}`},
		{"empty content", `{"id":"x","object":"chat.completion","created":0,"model":"gpt-4","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":""}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOpenAI(t, func(rw http.ResponseWriter, r *http.Request) {
				rw.Header().Set("Content-Type", "application/json")
				_, _ = rw.Write([]byte(tt.body))
			})

			_, err := o.Generate(context.Background(), repositories.GenerateRequest{Prompt: "hello"})
			if domain.Kind(err) != domain.KindBackendProtocol {
				t.Errorf("Expected backend_protocol, got %s (%v)", domain.Kind(err), err)
			}
		})
	}
}

func TestMockLLM(t *testing.T) {
	m := NewMockLLM()
	reply, err := m.Generate(context.Background(), repositories.GenerateRequest{Prompt: "hello"})
	if err != nil || reply == "" {
		t.Errorf("Expected reply, got %q, %v", reply, err)
	}
	reply, err = m.Generate(context.Background(), repositories.GenerateRequest{})
	if err != nil || reply == "" {
		t.Errorf("Expected fallback reply for empty prompt, got %q, %v", reply, err)
	}
}
