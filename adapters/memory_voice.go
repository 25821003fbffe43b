package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/domain/repositories"
)

// MemoryVoiceRepository is an in-memory voice catalog
type MemoryVoiceRepository struct {
	mu     sync.RWMutex
	voices map[string]*entities.Voice // voice_id -> voice
}

// NewMemoryVoiceRepository creates a catalog holding seed
func NewMemoryVoiceRepository(seed ...entities.Voice) (*MemoryVoiceRepository, error) {
	m := &MemoryVoiceRepository{voices: make(map[string]*entities.Voice)}
	for i := range seed {
		voice := seed[i]
		if err := m.Create(context.Background(), &voice); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// List implements VoiceRepository interface
func (m *MemoryVoiceRepository) List(ctx context.Context) ([]*entities.Voice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Voice, 0, len(m.voices))
	for _, voice := range m.voices {
		voiceCopy := *voice
		result = append(result, &voiceCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetByVoiceID implements VoiceRepository interface
func (m *MemoryVoiceRepository) GetByVoiceID(ctx context.Context, voiceID string) (*entities.Voice, error) {
	if voiceID == "" {
		return nil, errors.New("voice ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	voice, exists := m.voices[voiceID]
	if !exists {
		return nil, repositories.ErrVoiceNotFound
	}
	voiceCopy := *voice
	return &voiceCopy, nil
}

// Create implements VoiceRepository interface
func (m *MemoryVoiceRepository) Create(ctx context.Context, voice *entities.Voice) error {
	if voice == nil {
		return errors.New("voice cannot be nil")
	}
	if err := voice.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.voices[voice.VoiceID]; exists {
		return errors.New("voice with this voice_id already exists")
	}
	if voice.ID == "" {
		voice.ID = uuid.New().String()
	}
	if voice.CreatedAt.IsZero() {
		voice.CreatedAt = time.Now()
	}

	voiceCopy := *voice
	m.voices[voice.VoiceID] = &voiceCopy
	return nil
}
