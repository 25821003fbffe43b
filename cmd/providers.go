package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/adapters"
	"github.com/satriahrh/voicechat/adapters/llm"
	"github.com/satriahrh/voicechat/adapters/mongo"
	"github.com/satriahrh/voicechat/adapters/stt"
	"github.com/satriahrh/voicechat/adapters/transcoder"
	"github.com/satriahrh/voicechat/adapters/tts"
	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/domain/repositories"
	"github.com/satriahrh/voicechat/internal/config"
)

// seedTimeout bounds startup catalog seeding
const seedTimeout = 15 * time.Second

// voiceLister is implemented by synthesis backends that can enumerate voices
type voiceLister interface {
	ListVoices(ctx context.Context) ([]entities.Voice, error)
}

func newTranscoder(cfg config.TranscoderConfig, logger *zap.Logger) repositories.AudioTranscoder {
	return transcoder.NewFFmpegTranscoder(transcoder.Config{
		FFmpegPath:    cfg.FFmpegPath,
		DefaultFormat: cfg.SourceFormat,
		MaxConcurrent: cfg.MaxConcurrent,
	}, logger)
}

func newSpeechToText(ctx context.Context, cfg config.TranscriptionConfig, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case "google":
		g, err := stt.NewGoogleSpeechToText(ctx, cfg.CredentialsFile, logger)
		if err != nil {
			return nil, noop, err
		}
		return g, func() {
			if err := g.Close(); err != nil {
				logger.Warn("Failed to close speech client", zap.Error(err))
			}
		}, nil
	case "whisper":
		w, err := stt.NewWhisperSpeechToText(stt.WhisperConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.WhisperModel,
		}, logger)
		return w, noop, err
	case "mock":
		return stt.NewMockSpeechToText(cfg.MockTranscript, logger), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}
}

func newLLM(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}, logger)
	case "gemini":
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.Model}, logger)
	case "mock":
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// newTextToSpeech also returns the backend as a voiceLister when it can list
// voices, nil otherwise
func newTextToSpeech(cfg config.SynthesisConfig, logger *zap.Logger) (repositories.TextToSpeech, voiceLister, error) {
	mode, err := tts.ParseMode(cfg.Mode)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Provider {
	case "elevenlabs":
		e, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			APIBaseURL:   cfg.BaseURL,
			VoiceID:      cfg.DefaultVoice,
			ModelID:      cfg.Model,
			OutputFormat: cfg.OutputFormat,
			ChunkSize:    cfg.ChunkSize,
			Stability:    cfg.Stability,
			Clarity:      cfg.Similarity,
			Mode:         mode,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	case "openai":
		o, err := tts.NewOpenAITTS(tts.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Voice:     cfg.DefaultVoice,
			ChunkSize: cfg.ChunkSize,
			Mode:      mode,
		}, logger)
		return o, nil, err
	case "mock":
		return tts.NewMockTTS(mode, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown synthesis provider %q", cfg.Provider)
	}
}

// newVoiceRepository opens the catalog and fills it from the configured
// voices and, when asked, from the synthesis backend
func newVoiceRepository(ctx context.Context, cfg *config.Config, source voiceLister, logger *zap.Logger) (repositories.VoiceRepository, func(), error) {
	var (
		repo    repositories.VoiceRepository
		closeFn = func() {}
	)

	if cfg.Mongo.URI != "" {
		client, err := mongo.NewClient(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { _ = client.Close(context.Background()) }

		voices := mongo.NewVoiceRepository(client.Database)
		if err := voices.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, func() {}, err
		}
		repo = voices
	} else {
		memory, err := adapters.NewMemoryVoiceRepository()
		if err != nil {
			return nil, closeFn, err
		}
		repo = memory
	}

	seed := make([]entities.Voice, 0, len(cfg.Voices))
	for _, v := range cfg.Voices {
		seed = append(seed, entities.Voice{Name: v.Name, Description: v.Description, VoiceID: v.VoiceID})
	}

	seedCtx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	if cfg.Synthesis.SeedVoices && source != nil {
		fetched, err := source.ListVoices(seedCtx)
		if err != nil {
			// The catalog is informational; synthesis works without it
			logger.Warn("Failed to fetch voices from synthesis backend", zap.Error(err))
		} else {
			seed = append(seed, fetched...)
		}
	}

	added, err := seedVoices(seedCtx, repo, seed)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	logger.Info("Voice catalog ready", zap.Bool("mongo", cfg.Mongo.URI != ""), zap.Int("seeded", added))
	return repo, closeFn, nil
}

// seedVoices creates the valid voices missing from repo and returns how many
// were added
func seedVoices(ctx context.Context, repo repositories.VoiceRepository, voices []entities.Voice) (int, error) {
	added := 0
	for i := range voices {
		voice := voices[i]
		if voice.Validate() != nil {
			continue
		}
		_, err := repo.GetByVoiceID(ctx, voice.VoiceID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrVoiceNotFound) {
			return added, err
		}
		if err := repo.Create(ctx, &voice); err != nil {
			return added, fmt.Errorf("seed voice %s: %w", voice.VoiceID, err)
		}
		added++
	}
	return added, nil
}
