package entities

import (
	"errors"
	"time"
)

// Voice is a catalog entry describing a selectable synthesis voice
type Voice struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	VoiceID     string    `json:"voice_id" bson:"voice_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func (v *Voice) Validate() error {
	if v.Name == "" {
		return errors.New("name is required")
	}
	if v.VoiceID == "" {
		return errors.New("voice_id is required")
	}
	return nil
}
