package tts

import (
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/satriahrh/voicechat/domain/entities"
)

// Mode selects how a synthesizer hands audio to the caller
type Mode string

const (
	ModeBatch  Mode = "batch"
	ModeStream Mode = "stream"
)

// ParseMode validates a configured mode, defaulting to batch
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBatch:
		return ModeBatch, nil
	case ModeStream:
		return ModeStream, nil
	default:
		return "", errors.New("synthesis mode must be batch or stream, got " + s)
	}
}

// readChunks yields body in pieces of at most size bytes as they arrive.
// Read errors are passed through wrap before being yielded.
func readChunks(body io.Reader, size int, wrap func(error) error) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buffer := make([]byte, size)
		for {
			n, err := body.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, wrap(err))
				return
			}
		}
	}
}

// formatFromOutput maps an ElevenLabs style output format such as
// mp3_22050_32 or pcm_24000 to an AudioFormat
func formatFromOutput(output string) entities.AudioFormat {
	parts := strings.Split(output, "_")
	format := entities.AudioFormat{Container: parts[0], Codec: parts[0]}
	if len(parts) > 1 {
		format.SampleRate = atoiOrZero(parts[1])
	}
	switch parts[0] {
	case "mp3":
		format.MIMEType = "audio/mpeg"
	case "pcm":
		format.Codec = "pcm_s16le"
		format.MIMEType = "audio/pcm"
	case "ulaw":
		format.MIMEType = "audio/basic"
	case "opus":
		format.Container = "ogg"
		format.MIMEType = "audio/ogg"
	case "wav":
		format.Codec = "pcm_s16le"
		format.MIMEType = "audio/wav"
	}
	return format
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
