package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain/repositories"
)

const (
	DefaultPersona     = "You are a voice assistant."
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.9
)

// ChatConfig is the deployment-wide generation setup. It never varies per
// request.
type ChatConfig struct {
	Persona     string
	MaxTokens   int
	Temperature float64
	// EmptyTranscriptReply, when set, answers an empty transcript without
	// calling the backend
	EmptyTranscriptReply string
}

// ChatService turns a transcript into a reply using a fixed persona
type ChatService struct {
	llm    repositories.LargeLanguageModel
	config ChatConfig
	logger *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(llm repositories.LargeLanguageModel, config ChatConfig, logger *zap.Logger) *ChatService {
	if config.Persona == "" {
		config.Persona = DefaultPersona
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	return &ChatService{llm: llm, config: config, logger: logger}
}

// Reply generates the assistant's answer to transcript
func (s *ChatService) Reply(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" && s.config.EmptyTranscriptReply != "" {
		s.logger.Debug("Empty transcript, using fixed reply")
		return s.config.EmptyTranscriptReply, nil
	}
	return s.llm.Generate(ctx, s.request(transcript))
}

func (s *ChatService) request(transcript string) repositories.GenerateRequest {
	return repositories.GenerateRequest{
		SystemPrompt: s.config.Persona,
		Prompt:       transcript,
		MaxTokens:    s.config.MaxTokens,
		Temperature:  s.config.Temperature,
	}
}
