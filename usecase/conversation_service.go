package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
	"github.com/satriahrh/voicechat/domain/repositories"
	"github.com/satriahrh/voicechat/internal/observe"
)

// EventSink receives the outbound events of one session. Emit is called from
// a single goroutine per run, in emission order.
type EventSink interface {
	Emit(ctx context.Context, event string, payload any) error
}

// StageTimeouts bound each external call. Zero disables the bound.
type StageTimeouts struct {
	Decode     time.Duration
	Transcribe time.Duration
	Generate   time.Duration
	Synthesize time.Duration
}

// PipelineConfig configures the conversation pipeline
type PipelineConfig struct {
	Language     string
	Timeouts     StageTimeouts
	StreamChunks bool // emit audio_chunk events while synthesizing
}

// ConversationService runs utterances through decode, transcribe, generate
// and synthesize. It holds no per-run state and is safe for concurrent use
// by any number of sessions.
type ConversationService struct {
	transcoder   repositories.AudioTranscoder
	speechToText repositories.SpeechToText
	chatService  *ChatService
	textToSpeech repositories.TextToSpeech
	config       PipelineConfig
	metrics      *observe.Metrics
	logger       *zap.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	transcoder repositories.AudioTranscoder,
	stt repositories.SpeechToText,
	chatService *ChatService,
	tts repositories.TextToSpeech,
	config PipelineConfig,
	metrics *observe.Metrics,
	logger *zap.Logger,
) *ConversationService {
	if config.Language == "" {
		config.Language = "ru-RU"
	}
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	return &ConversationService{
		transcoder:   transcoder,
		speechToText: stt,
		chatService:  chatService,
		textToSpeech: tts,
		config:       config,
		metrics:      metrics,
		logger:       logger,
	}
}

// Process runs one utterance to completion and returns the finished run.
// Exactly one terminal event (audio_response or error) is emitted to sink.
// Failures, including panics, never escape.
func (s *ConversationService) Process(ctx context.Context, utt entities.Utterance, sink EventSink) (run *entities.Run) {
	run = entities.NewRun(uuid.NewString(), utt.SessionID)
	logger := s.logger.With(zap.String("sessionID", utt.SessionID), zap.String("runID", run.ID))

	defer func() {
		if r := recover(); r != nil {
			if run.IsTerminal() {
				logger.Error("Panic after run finished", zap.Any("panic", r))
				return
			}
			s.fail(ctx, run, sink, fmt.Errorf("panic: %v", r), logger)
		}
	}()

	logger.Info("Processing utterance",
		zap.Int("audioSize", len(utt.Audio)),
		zap.String("format", utt.Format),
		zap.String("voice", string(utt.Voice)))

	if err := s.execute(ctx, run, utt, sink, logger); err != nil {
		s.fail(ctx, run, sink, err, logger)
		return run
	}

	s.metrics.RecordRun(ctx, run.Elapsed(), "", "")
	logger.Info("Utterance delivered", zap.Duration("elapsed", run.Elapsed()))
	return run
}

func (s *ConversationService) execute(ctx context.Context, run *entities.Run, utt entities.Utterance, sink EventSink, logger *zap.Logger) error {
	// Step 1: decode
	var audio entities.CanonicalAudio
	err := s.stage(ctx, entities.StageDecode, s.config.Timeouts.Decode, func(ctx context.Context) (err error) {
		audio, err = s.transcoder.DecodeToWAV(ctx, utt.Audio, utt.Format)
		return err
	})
	if err != nil {
		return err
	}
	if err := run.Advance(entities.RunStateDecoded); err != nil {
		return err
	}

	// Step 2: speech to text
	var transcript string
	err = s.stage(ctx, entities.StageTranscribe, s.config.Timeouts.Transcribe, func(ctx context.Context) (err error) {
		transcript, err = s.speechToText.TranscribeAudio(ctx, audio, s.config.Language)
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("Transcription completed", zap.String("text", transcript))
	if err := s.emit(ctx, sink, domain.EventPartialResponse, domain.PartialResponse{Sender: domain.SenderUser, Text: transcript}); err != nil {
		return err
	}
	if err := run.Advance(entities.RunStateTranscribed); err != nil {
		return err
	}

	// Step 3: reply
	var reply string
	err = s.stage(ctx, entities.StageGenerate, s.config.Timeouts.Generate, func(ctx context.Context) (err error) {
		reply, err = s.chatService.Reply(ctx, transcript)
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("AI response generated", zap.String("response", reply))
	if err := s.emit(ctx, sink, domain.EventPartialResponse, domain.PartialResponse{Sender: domain.SenderAI, Text: reply}); err != nil {
		return err
	}
	if err := run.Advance(entities.RunStateGenerated); err != nil {
		return err
	}

	// Step 4: text to speech. The stream is drained inside the stage so its
	// deadline covers the whole transfer.
	var synthesized entities.SynthesizedAudio
	err = s.stage(ctx, entities.StageSynthesize, s.config.Timeouts.Synthesize, func(stageCtx context.Context) error {
		stream, err := s.textToSpeech.ConvertTextToSpeech(stageCtx, reply, utt.Voice)
		if err != nil {
			return err
		}
		var onChunk func(int, []byte) error
		if s.config.StreamChunks {
			onChunk = func(seq int, chunk []byte) error {
				return s.emit(ctx, sink, domain.EventAudioChunk, domain.AudioChunk{
					Audio: entities.SynthesizedAudio{Data: chunk}.Base64(),
					Seq:   seq,
				})
			}
		}
		synthesized, err = stream.Collect(onChunk)
		if errors.Is(err, entities.ErrEmptyAudio) {
			return &domain.SynthesisServiceError{Voice: string(utt.Voice), Message: "backend returned no audio"}
		}
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("TTS completed", zap.Int("audioSize", len(synthesized.Data)))
	if err := run.Advance(entities.RunStateSynthesized); err != nil {
		return err
	}

	// Step 5: deliver
	if err := s.emit(ctx, sink, domain.EventAudioResponse, domain.AudioResponse{
		Audio:  synthesized.Base64(),
		Format: synthesized.Format.MIMEType,
	}); err != nil {
		return err
	}
	return run.Advance(entities.RunStateDelivered)
}

// stage runs fn under the stage deadline and records its latency. A deadline
// hit becomes a *domain.TimeoutError whatever the adapter returned.
func (s *ConversationService) stage(ctx context.Context, stage entities.Stage, timeout time.Duration, fn func(context.Context) error) error {
	stageCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	err := fn(stageCtx)
	s.metrics.RecordStage(ctx, string(stage), time.Since(start))

	if err != nil && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return &domain.TimeoutError{Stage: string(stage), Timeout: timeout, Err: err}
	}
	return err
}

func (s *ConversationService) emit(ctx context.Context, sink EventSink, event string, payload any) error {
	if err := sink.Emit(ctx, event, payload); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// fail ends run and emits its single error event
func (s *ConversationService) fail(ctx context.Context, run *entities.Run, sink EventSink, err error, logger *zap.Logger) {
	stage := run.CurrentStage()
	if ferr := run.Fail(err); ferr != nil {
		logger.Error("Cannot fail finished run", zap.Error(ferr))
		return
	}
	kind := domain.Kind(err)

	logger.Error("Utterance failed",
		zap.String("stage", string(stage)),
		zap.String("errorKind", string(kind)),
		zap.Error(err))
	s.metrics.RecordRun(ctx, run.Elapsed(), string(stage), string(kind))

	if emitErr := sink.Emit(ctx, domain.EventError, domain.ErrorMessage{Message: FailureMessage(stage, err)}); emitErr != nil {
		logger.Warn("Failed to deliver error event", zap.Error(emitErr))
	}
}

// FailureMessage is the client-facing text for a failed stage
func FailureMessage(stage entities.Stage, err error) string {
	if domain.Kind(err) == domain.KindInternal {
		return fmt.Sprintf("%s failed: internal error", stage)
	}
	return fmt.Sprintf("%s failed: %v", stage, err)
}
