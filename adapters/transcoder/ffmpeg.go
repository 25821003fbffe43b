package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

const maxStderr = 512

// Config holds ffmpeg transcoder settings
type Config struct {
	FFmpegPath    string
	DefaultFormat string
	MaxConcurrent int
}

// FFmpegTranscoder decodes compressed audio by piping it through ffmpeg.
// Concurrent decodes are bounded so CPU-heavy work cannot starve the process.
type FFmpegTranscoder struct {
	path          string
	defaultFormat string
	sem           *semaphore.Weighted
	logger        *zap.Logger
}

func NewFFmpegTranscoder(cfg Config, logger *zap.Logger) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "webm"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &FFmpegTranscoder{
		path:          cfg.FFmpegPath,
		defaultFormat: cfg.DefaultFormat,
		sem:           semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:        logger,
	}
}

// DecodeToWAV implements repositories.AudioTranscoder
func (t *FFmpegTranscoder) DecodeToWAV(ctx context.Context, raw []byte, hint string) (entities.CanonicalAudio, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		hint = t.defaultFormat
	}
	if len(raw) == 0 {
		return entities.CanonicalAudio{}, &domain.DecodeError{Format: hint, Reason: "empty input"}
	}
	if !entities.SupportedContainer(hint) {
		return entities.CanonicalAudio{}, &domain.DecodeError{Format: hint, Reason: "unsupported container"}
	}

	// Already canonical
	if hint == "wav" {
		if audio, err := ParseWAV(raw); err == nil {
			return audio, nil
		}
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return entities.CanonicalAudio{}, fmt.Errorf("waiting for decoder slot: %w", err)
	}
	defer t.sem.Release(1)

	start := time.Now()
	out, err := t.run(ctx, raw, hint)
	if err != nil {
		return entities.CanonicalAudio{}, err
	}

	audio, err := ParseWAV(out)
	if err != nil {
		return entities.CanonicalAudio{}, &domain.DecodeError{Format: hint, Reason: "unreadable ffmpeg output", Err: err}
	}

	t.logger.Debug("Decoded audio",
		zap.String("format", hint),
		zap.Int("inputBytes", len(raw)),
		zap.Int("sampleRate", audio.SampleRate),
		zap.Int("channels", audio.Channels),
		zap.Duration("audioDuration", audio.Duration()),
		zap.Duration("elapsed", time.Since(start)))

	return audio, nil
}

func (t *FFmpegTranscoder) run(ctx context.Context, raw []byte, hint string) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-protocol_whitelist", "pipe",
		"-f", hint, "-i", "pipe:0",
		"-f", "wav", "-acodec", "pcm_s16le", "pipe:1",
	}
	cmd := exec.CommandContext(ctx, t.path, args...)
	cmd.Stdin = bytes.NewReader(raw)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("ffmpeg: %w", ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.As(err, &pathErr):
			return nil, &domain.DecodeError{Format: hint, Reason: "ffmpeg unavailable", Err: err}
		case errors.As(err, &exitErr):
			return nil, &domain.DecodeError{
				Format: hint,
				Reason: fmt.Sprintf("ffmpeg exited with status %d: %s", exitErr.ExitCode(), tail(stderr.String())),
			}
		default:
			return nil, &domain.DecodeError{Format: hint, Err: err}
		}
	}
	if stdout.Len() == 0 {
		return nil, &domain.DecodeError{Format: hint, Reason: "ffmpeg produced no output"}
	}
	return stdout.Bytes(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[len(s)-maxStderr:]
	}
	return s
}
