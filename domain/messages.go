package domain

import "encoding/json"

// Event names carried in the envelope
const (
	EventAudioStream     = "audio_stream"
	EventPartialResponse = "partial_response"
	EventAudioResponse   = "audio_response"
	EventAudioChunk      = "audio_chunk"
	EventError           = "error"
)

// Senders of a partial_response
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Envelope is the frame exchanged over the session socket
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AudioStreamRequest submits one utterance
type AudioStreamRequest struct {
	Audio  string `json:"audio"` // base64 encoded
	Voice  string `json:"voice"`
	Format string `json:"format,omitempty"`
}

// PartialResponse reports the transcript (sender user) or the reply (sender ai)
type PartialResponse struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// AudioResponse carries the synthesized reply
type AudioResponse struct {
	Audio  string `json:"audio"` // base64 encoded
	Format string `json:"format,omitempty"`
}

// AudioChunk is a progressive piece of the reply audio
type AudioChunk struct {
	Audio string `json:"audio"`
	Seq   int    `json:"seq"`
}

// ErrorMessage terminates a failed utterance
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewEnvelope marshals payload into an envelope for event
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}
