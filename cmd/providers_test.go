package main

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicechat/adapters"
	"github.com/satriahrh/voicechat/adapters/tts"
	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/internal/config"
)

type staticVoices []entities.Voice

func (s staticVoices) ListVoices(ctx context.Context) ([]entities.Voice, error) {
	return s, nil
}

func TestSeedVoices(t *testing.T) {
	ctx := context.Background()
	repo, _ := adapters.NewMemoryVoiceRepository(entities.Voice{Name: "Existing", VoiceID: "v0"})

	added, err := seedVoices(ctx, repo, []entities.Voice{
		{Name: "Existing again", VoiceID: "v0"},
		{Name: "Rachel", VoiceID: "v1"},
		{Name: "Rachel twice", VoiceID: "v1"},
		{Name: "", VoiceID: "v2"},
	})
	if err != nil {
		t.Fatalf("seedVoices failed: %v", err)
	}
	if added != 1 {
		t.Errorf("Expected 1 voice added, got %d", added)
	}
	voices, _ := repo.List(ctx)
	if len(voices) != 2 {
		t.Errorf("Expected 2 voices, got %d", len(voices))
	}
}

func TestNewVoiceRepository_SeedsFromConfigAndBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Voices = []config.VoiceConfig{{Name: "Configured", VoiceID: "c1"}}
	cfg.Synthesis.SeedVoices = true

	repo, closeFn, err := newVoiceRepository(context.Background(), cfg,
		staticVoices{{Name: "Fetched", VoiceID: "f1"}}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newVoiceRepository failed: %v", err)
	}
	defer closeFn()

	voices, _ := repo.List(context.Background())
	if len(voices) != 2 || voices[0].Name != "Configured" || voices[1].Name != "Fetched" {
		t.Errorf("Unexpected catalog %+v", voices)
	}
}

func TestNewTextToSpeech(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := config.Default().Synthesis
	backend, lister, err := newTextToSpeech(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.(*tts.MockTTS); !ok || lister != nil {
		t.Errorf("Expected mock backend without lister, got %T %v", backend, lister)
	}

	cfg.Provider = "elevenlabs"
	cfg.ElevenLabsAPIKey = "el-test"
	backend, lister, err = newTextToSpeech(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.(*tts.ElevenLabsTTS); !ok || lister == nil {
		t.Errorf("Expected ElevenLabs backend with lister, got %T", backend)
	}

	cfg.Mode = "realtime"
	if _, _, err := newTextToSpeech(cfg, logger); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
