package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/domain/repositories"
)

// Requires a running MongoDB instance; skipped unless MONGODB_URI is set
func TestVoiceRepository_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, uri, "voicechat_test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		_ = client.Database.Drop(ctx)
		_ = client.Close(ctx)
	}()

	repo := NewVoiceRepository(client.Database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	voice := &entities.Voice{Name: "Rachel", Description: "calm", VoiceID: "21m00Tcm4TlvDq8ikWAM"}
	if err := repo.Create(ctx, voice); err != nil {
		t.Fatalf("Failed to create voice: %v", err)
	}
	if voice.ID == "" {
		t.Error("Expected ID to be assigned")
	}

	got, err := repo.GetByVoiceID(ctx, voice.VoiceID)
	if err != nil {
		t.Fatalf("Failed to get voice: %v", err)
	}
	if got.Name != "Rachel" {
		t.Errorf("Expected name Rachel, got %s", got.Name)
	}

	if _, err := repo.GetByVoiceID(ctx, "missing"); !errors.Is(err, repositories.ErrVoiceNotFound) {
		t.Errorf("Expected ErrVoiceNotFound, got %v", err)
	}

	voices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list voices: %v", err)
	}
	if len(voices) != 1 {
		t.Errorf("Expected 1 voice, got %d", len(voices))
	}
}
