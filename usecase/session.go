package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voicechat/domain"
	"github.com/satriahrh/voicechat/domain/entities"
)

// ErrSessionBusy is returned by Submit while the session cannot take another
// utterance
var ErrSessionBusy = errors.New("utterance rejected: previous utterance still in progress")

// Session serializes the utterances of one connection. A single worker runs
// them one at a time so events of different utterances never interleave;
// Submit never blocks.
type Session struct {
	ID string

	pipeline *ConversationService
	sink     EventSink
	slots    chan struct{}
	queue    chan entities.Utterance
	logger   *zap.Logger
}

// NewSession creates a session. queueDepth is how many utterances may wait
// behind the one in flight.
func (s *ConversationService) NewSession(id string, sink EventSink, queueDepth int) *Session {
	if queueDepth < 0 {
		queueDepth = 0
	}
	return &Session{
		ID:       id,
		pipeline: s,
		sink:     sink,
		slots:    make(chan struct{}, queueDepth+1),
		queue:    make(chan entities.Utterance, queueDepth+1),
		logger:   s.logger.With(zap.String("sessionID", id)),
	}
}

// Submit hands utt to the worker or returns ErrSessionBusy
func (s *Session) Submit(utt entities.Utterance) error {
	select {
	case s.slots <- struct{}{}:
	default:
		return ErrSessionBusy
	}
	utt.SessionID = s.ID
	// Cannot block: the queue has as many places as there are slots
	s.queue <- utt
	return nil
}

// Run processes submitted utterances until ctx is done
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case utt := <-s.queue:
			s.process(ctx, utt)
		}
	}
}

func (s *Session) process(ctx context.Context, utt entities.Utterance) {
	var once sync.Once
	release := func() { once.Do(func() { <-s.slots }) }
	defer release()

	run := s.pipeline.Process(ctx, utt, &releasingSink{EventSink: s.sink, release: release})
	s.logger.Debug("Run finished",
		zap.String("runID", run.ID),
		zap.String("state", string(run.State)),
		zap.Duration("elapsed", run.Elapsed()))
}

// releasingSink frees the session slot just before the terminal event goes
// out, so a client reacting to that event is never told the session is busy
type releasingSink struct {
	EventSink
	release func()
}

func (r *releasingSink) Emit(ctx context.Context, event string, payload any) error {
	if event == domain.EventAudioResponse || event == domain.EventError {
		r.release()
	}
	return r.EventSink.Emit(ctx, event, payload)
}
