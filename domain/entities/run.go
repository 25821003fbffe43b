package entities

import (
	"fmt"
	"time"
)

// RunState is the position of one utterance in the pipeline
type RunState string

const (
	RunStateReceived    RunState = "received"
	RunStateDecoded     RunState = "decoded"
	RunStateTranscribed RunState = "transcribed"
	RunStateGenerated   RunState = "generated"
	RunStateSynthesized RunState = "synthesized"
	RunStateDelivered   RunState = "delivered"
	RunStateFailed      RunState = "failed"
)

// Stage names the step that moves a run out of a state
type Stage string

const (
	StageDecode     Stage = "decode"
	StageTranscribe Stage = "transcribe"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
	StageDeliver    Stage = "deliver"
)

// next lists the only legal successful transition out of each state
var next = map[RunState]RunState{
	RunStateReceived:    RunStateDecoded,
	RunStateDecoded:     RunStateTranscribed,
	RunStateTranscribed: RunStateGenerated,
	RunStateGenerated:   RunStateSynthesized,
	RunStateSynthesized: RunStateDelivered,
}

// stageOf is the stage that runs while a run sits in a state
var stageOf = map[RunState]Stage{
	RunStateReceived:    StageDecode,
	RunStateDecoded:     StageTranscribe,
	RunStateTranscribed: StageGenerate,
	RunStateGenerated:   StageSynthesize,
	RunStateSynthesized: StageDeliver,
}

// Transition records one state change
type Transition struct {
	From RunState  `json:"from"`
	To   RunState  `json:"to"`
	At   time.Time `json:"at"`
}

// Run tracks a single pipeline run. It is owned by the goroutine executing
// the run and is not safe for concurrent use.
type Run struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id"`
	State       RunState     `json:"state"`
	FailedStage Stage        `json:"failed_stage,omitempty"`
	Err         error        `json:"-"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
	Transitions []Transition `json:"transitions"`
}

// NewRun creates a run in the Received state
func NewRun(id, sessionID string) *Run {
	return &Run{
		ID:          id,
		SessionID:   sessionID,
		State:       RunStateReceived,
		StartedAt:   time.Now(),
		Transitions: make([]Transition, 0, 5),
	}
}

// CurrentStage is the stage that must complete for the run to advance
func (r *Run) CurrentStage() Stage {
	return stageOf[r.State]
}

// IsTerminal reports whether the run has ended
func (r *Run) IsTerminal() bool {
	return r.State == RunStateDelivered || r.State == RunStateFailed
}

// Advance moves the run to the next state. Skipping or repeating a state is
// an error.
func (r *Run) Advance(to RunState) error {
	want, ok := next[r.State]
	if !ok || want != to {
		return fmt.Errorf("illegal transition %s -> %s", r.State, to)
	}
	r.record(to)
	return nil
}

// Fail ends the run at the current stage
func (r *Run) Fail(err error) error {
	if r.IsTerminal() {
		return fmt.Errorf("run already %s", r.State)
	}
	r.FailedStage = r.CurrentStage()
	r.Err = err
	r.record(RunStateFailed)
	return nil
}

// Elapsed is the wall time spent so far, or in total once terminal
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

func (r *Run) record(to RunState) {
	now := time.Now()
	r.Transitions = append(r.Transitions, Transition{From: r.State, To: to, At: now})
	r.State = to
	if r.IsTerminal() {
		r.FinishedAt = &now
	}
}
