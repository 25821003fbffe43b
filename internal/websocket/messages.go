package websocket

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

// ErrMalformedFrame wraps every reason an inbound frame is refused
var ErrMalformedFrame = errors.New("malformed frame")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
}

// ParseUtterance validates an inbound frame and turns an audio_stream
// envelope into an utterance. defaultFormat is used when the frame names no
// container.
func ParseUtterance(frame []byte, defaultFormat string) (entities.Utterance, error) {
	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return entities.Utterance{}, malformed("invalid JSON: %v", err)
	}

	switch env.Event {
	case domain.EventAudioStream:
	case "":
		return entities.Utterance{}, malformed("event is required")
	default:
		return entities.Utterance{}, malformed("unsupported event %q", env.Event)
	}

	if len(env.Data) == 0 {
		return entities.Utterance{}, malformed("data is required")
	}
	var req domain.AudioStreamRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return entities.Utterance{}, malformed("invalid audio_stream data: %v", err)
	}
	if req.Audio == "" {
		return entities.Utterance{}, malformed("audio is required")
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return entities.Utterance{}, malformed("audio is not valid base64")
	}
	if len(audio) == 0 {
		return entities.Utterance{}, malformed("audio is empty")
	}
	if strings.TrimSpace(req.Voice) == "" {
		return entities.Utterance{}, malformed("voice is required")
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = defaultFormat
	}
	if !entities.SupportedContainer(format) {
		return entities.Utterance{}, malformed("unsupported format %q", format)
	}

	return entities.Utterance{
		Audio:      audio,
		Format:     format,
		Voice:      entities.VoiceIdentity(req.Voice),
		ReceivedAt: time.Now(),
	}, nil
}

// encodeEvent builds the outbound frame for event
func encodeEvent(event string, payload any) ([]byte, error) {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(env)
}
