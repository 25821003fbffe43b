package entities

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"
)

// VoiceIdentity selects a synthesis voice. It is resolved by the synthesis
// backend, not by the pipeline.
type VoiceIdentity string

// Utterance is one client-submitted unit of speech.
type Utterance struct {
	SessionID  string
	Audio      []byte        // compressed container bytes
	Format     string        // container hint, e.g. "webm"
	Voice      VoiceIdentity
	ReceivedAt time.Time
}

// containers lists the source formats accepted from clients. Demuxers that
// open other inputs named in their data (hls, concat) must never be added.
var containers = map[string]struct{}{
	"webm": {},
	"ogg":  {},
	"mp3":  {},
	"wav":  {},
	"mp4":  {},
	"m4a":  {},
	"flac": {},
}

// SupportedContainer reports whether format names an accepted source container.
func SupportedContainer(format string) bool {
	_, ok := containers[format]
	return ok
}

// CanonicalAudio is a 16-bit linear PCM WAV container together with the
// metadata read from its header.
type CanonicalAudio struct {
	WAV           []byte
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataOffset    int
	DataSize      int
}

// PCM returns the sample data without the container header.
func (a CanonicalAudio) PCM() []byte {
	end := a.DataOffset + a.DataSize
	if a.DataOffset < 0 || end > len(a.WAV) || a.DataOffset > end {
		return nil
	}
	return a.WAV[a.DataOffset:end]
}

// Duration is the playback length implied by the header.
func (a CanonicalAudio) Duration() time.Duration {
	frame := a.Channels * a.BitsPerSample / 8
	if frame <= 0 || a.SampleRate <= 0 {
		return 0
	}
	frames := a.DataSize / frame
	return time.Duration(frames) * time.Second / time.Duration(a.SampleRate)
}

// AudioFormat tags an encoded audio payload.
type AudioFormat struct {
	Container  string `json:"container"`
	Codec      string `json:"codec"`
	MIMEType   string `json:"mime_type"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// SynthesizedAudio is the terminal artifact of a pipeline run.
type SynthesizedAudio struct {
	Data   []byte
	Format AudioFormat
}

// Base64 returns the payload in its transport encoding.
func (a SynthesizedAudio) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// ErrEmptyAudio is returned by Collect when a stream produced no bytes.
var ErrEmptyAudio = errors.New("synthesized audio is empty")

// AudioStream is a lazily produced sequence of encoded audio chunks. A batch
// synthesizer yields a single chunk; a streaming synthesizer yields chunks as
// the backend delivers them. Callers must either range over Chunks until it
// finishes or call Close.
type AudioStream struct {
	Format AudioFormat

	chunks iter.Seq2[[]byte, error]
	closer io.Closer
}

// NewAudioStream wraps a chunk sequence. closer may be nil.
func NewAudioStream(format AudioFormat, chunks iter.Seq2[[]byte, error], closer io.Closer) *AudioStream {
	return &AudioStream{Format: format, chunks: chunks, closer: closer}
}

// NewBufferedAudioStream returns a stream that yields data as one chunk.
func NewBufferedAudioStream(format AudioFormat, data []byte) *AudioStream {
	return NewAudioStream(format, func(yield func([]byte, error) bool) {
		yield(data, nil)
	}, nil)
}

// Chunks returns the chunk sequence. It can be consumed once.
func (s *AudioStream) Chunks() iter.Seq2[[]byte, error] {
	return s.chunks
}

// Close releases the underlying response, if any.
func (s *AudioStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Collect drains the stream into a single payload. onChunk, when non-nil,
// observes every chunk in order before it is appended.
func (s *AudioStream) Collect(onChunk func(seq int, chunk []byte) error) (SynthesizedAudio, error) {
	defer s.Close()

	var data []byte
	seq := 0
	for chunk, err := range s.Chunks() {
		if err != nil {
			return SynthesizedAudio{}, err
		}
		if len(chunk) == 0 {
			continue
		}
		if onChunk != nil {
			if err := onChunk(seq, chunk); err != nil {
				return SynthesizedAudio{}, fmt.Errorf("chunk %d: %w", seq, err)
			}
		}
		data = append(data, chunk...)
		seq++
	}
	if len(data) == 0 {
		return SynthesizedAudio{}, ErrEmptyAudio
	}
	return SynthesizedAudio{Data: data, Format: s.Format}, nil
}
