package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/domain/repositories"
)

type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) DecodeToWAV(ctx context.Context, raw []byte, hint string) (entities.CanonicalAudio, error) {
	if f.err != nil {
		return entities.CanonicalAudio{}, f.err
	}
	return entities.CanonicalAudio{WAV: raw, SampleRate: 16000, Channels: 1, BitsPerSample: 16, DataSize: len(raw)}, nil
}

// fakeSTT returns the utterance bytes as the transcript
type fakeSTT struct{}

func (fakeSTT) TranscribeAudio(ctx context.Context, audio entities.CanonicalAudio, language string) (string, error) {
	return string(audio.WAV), nil
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []repositories.GenerateRequest
	delay    time.Duration
	err      error
	block    bool
}

func (f *fakeLLM) Generate(ctx context.Context, req repositories.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return "reply to " + req.Prompt, nil
}

func (f *fakeLLM) calls() []repositories.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repositories.GenerateRequest(nil), f.requests...)
}

type fakeTTS struct {
	panicMsg string
}

func (f *fakeTTS) ConvertTextToSpeech(ctx context.Context, text string, voice entities.VoiceIdentity) (*entities.AudioStream, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return entities.NewBufferedAudioStream(entities.AudioFormat{MIMEType: "audio/mpeg"}, []byte("mp3:"+text)), nil
}

type event struct {
	Name string
	Data json.RawMessage
}

// recordingSink keeps every event; onEmit runs after each one is stored
type recordingSink struct {
	mu     sync.Mutex
	events []event
	onEmit func(name string)
}

func (r *recordingSink) Emit(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.events = append(r.events, event{Name: name, Data: data})
	r.mu.Unlock()
	if r.onEmit != nil {
		r.onEmit(name)
	}
	return nil
}

func (r *recordingSink) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (e event) partial() domain.PartialResponse {
	var p domain.PartialResponse
	_ = json.Unmarshal(e.Data, &p)
	return p
}

func (e event) errorMessage() string {
	var m domain.ErrorMessage
	_ = json.Unmarshal(e.Data, &m)
	return m.Message
}

func (e event) audio() domain.AudioResponse {
	var a domain.AudioResponse
	_ = json.Unmarshal(e.Data, &a)
	return a
}
