package transcoder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/satriahrh/voicechat/domain/entities"
)

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkMinSize = 16
	formatPCM       = 1
	formatExtended  = 0xFFFE
)

// fmtChunk is the body of the "fmt " chunk
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ParseWAV reads a RIFF/WAVE container holding 16-bit PCM. Chunks other than
// "fmt " and "data" are skipped. A data size that overruns the buffer, as
// written by encoders streaming to a pipe, is clamped to what is present.
func ParseWAV(data []byte) (entities.CanonicalAudio, error) {
	if len(data) < riffHeaderSize+chunkHeaderSize {
		return entities.CanonicalAudio{}, fmt.Errorf("WAV data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return entities.CanonicalAudio{}, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return entities.CanonicalAudio{}, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var (
		format    fmtChunk
		gotFormat bool
	)
	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + chunkHeaderSize

		switch id {
		case "fmt ":
			if size < fmtChunkMinSize || body+fmtChunkMinSize > len(data) {
				return entities.CanonicalAudio{}, fmt.Errorf("invalid WAV file: short fmt chunk")
			}
			if err := binary.Read(bytes.NewReader(data[body:body+fmtChunkMinSize]), binary.LittleEndian, &format); err != nil {
				return entities.CanonicalAudio{}, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			gotFormat = true
		case "data":
			if !gotFormat {
				return entities.CanonicalAudio{}, fmt.Errorf("invalid WAV file: data chunk before fmt chunk")
			}
			if err := validateFormat(format); err != nil {
				return entities.CanonicalAudio{}, err
			}
			if size < 0 || body+size > len(data) {
				size = len(data) - body
			}
			return entities.CanonicalAudio{
				WAV:           data,
				SampleRate:    int(format.SampleRate),
				Channels:      int(format.NumChannels),
				BitsPerSample: int(format.BitsPerSample),
				DataOffset:    body,
				DataSize:      size,
			}, nil
		}

		next := body + size + size%2
		if size < 0 || next <= offset {
			break
		}
		offset = next
	}

	if !gotFormat {
		return entities.CanonicalAudio{}, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	return entities.CanonicalAudio{}, fmt.Errorf("invalid WAV file: missing data chunk")
}

func validateFormat(f fmtChunk) error {
	if f.AudioFormat != formatPCM && f.AudioFormat != formatExtended {
		return fmt.Errorf("unsupported audio format: %d (only PCM is supported)", f.AudioFormat)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", f.BitsPerSample)
	}
	if f.NumChannels == 0 || f.NumChannels > 2 {
		return fmt.Errorf("unsupported channel count: %d", f.NumChannels)
	}
	if f.SampleRate == 0 {
		return fmt.Errorf("invalid sample rate: 0")
	}
	return nil
}

// EncodeWAV wraps 16-bit little-endian PCM in a canonical 44-byte header
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fmtChunkMinSize))
	_ = binary.Write(buf, binary.LittleEndian, fmtChunk{
		AudioFormat:   formatPCM,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: bitsPerSample,
	})
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
