package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/domain/repositories"
)

type VoiceRepository struct {
	collection *mongo.Collection
}

// NewVoiceRepository creates a new MongoDB voice catalog
func NewVoiceRepository(db *mongo.Database) *VoiceRepository {
	return &VoiceRepository{
		collection: db.Collection("voices"),
	}
}

// EnsureIndexes makes voice_id unique
func (r *VoiceRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "voice_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create voice index: %w", err)
	}
	return nil
}

// List implements repositories.VoiceRepository
func (r *VoiceRepository) List(ctx context.Context) ([]*entities.Voice, error) {
	opts := options.Find().SetSort(bson.M{"name": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	defer cursor.Close(ctx)

	voices := []*entities.Voice{}
	if err := cursor.All(ctx, &voices); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}
	return voices, nil
}

// GetByVoiceID implements repositories.VoiceRepository
func (r *VoiceRepository) GetByVoiceID(ctx context.Context, voiceID string) (*entities.Voice, error) {
	if voiceID == "" {
		return nil, errors.New("voice ID cannot be empty")
	}

	var voice entities.Voice
	err := r.collection.FindOne(ctx, bson.M{"voice_id": voiceID}).Decode(&voice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrVoiceNotFound
		}
		return nil, fmt.Errorf("failed to get voice %s: %w", voiceID, err)
	}
	return &voice, nil
}

// Create implements repositories.VoiceRepository
func (r *VoiceRepository) Create(ctx context.Context, voice *entities.Voice) error {
	if voice == nil {
		return errors.New("voice cannot be nil")
	}
	if err := voice.Validate(); err != nil {
		return err
	}
	if voice.CreatedAt.IsZero() {
		voice.CreatedAt = time.Now()
	}

	doc := bson.M{
		"name":        voice.Name,
		"description": voice.Description,
		"voice_id":    voice.VoiceID,
		"created_at":  voice.CreatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create voice: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		voice.ID = oid.Hex()
	}
	return nil
}
