package executor

import (
	"time"

	"go.uber.org/zap"
)

// ProgressPhase names one phase boundary of step execution.
type ProgressPhase string

const (
	PhaseSelecting       ProgressPhase = "selecting"
	PhaseSelected        ProgressPhase = "selected"
	PhaseExecuting       ProgressPhase = "executing"
	PhaseAttempting      ProgressPhase = "attempting"
	PhaseStepComplete    ProgressPhase = "step_complete"
	PhaseSessionComplete ProgressPhase = "session_complete"
)

// ProgressEvent is one phase transition. Events are emitted synchronously at
// each boundary, never batched, so a UI collaborator sees them in real time.
type ProgressEvent struct {
	SessionID string        `json:"session_id"`
	StepID    string        `json:"step_id,omitempty"`
	Phase     ProgressPhase `json:"phase"`
	Detail    string        `json:"detail,omitempty"`
	At        time.Time     `json:"at"`
}

// ProgressReporter receives phase transitions. Implementations must be safe
// for use from a single session goroutine; Emit should return quickly since
// it runs inline with execution.
type ProgressReporter interface {
	Emit(event ProgressEvent)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Emit(ProgressEvent) {}

// LogReporter writes events to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter that logs each phase transition.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger.With(zap.String("component", "progress"))}
}

func (r *LogReporter) Emit(event ProgressEvent) {
	r.logger.Info("progress",
		zap.String("session_id", event.SessionID),
		zap.String("step_id", event.StepID),
		zap.String("phase", string(event.Phase)),
		zap.String("detail", event.Detail),
	)
}

// ChannelReporter forwards events to a channel for embedders that consume
// progress asynchronously. Emit drops events when the channel is full rather
// than blocking execution.
type ChannelReporter struct {
	ch chan ProgressEvent
}

// NewChannelReporter creates a channel-backed reporter with the given buffer.
func NewChannelReporter(buffer int) *ChannelReporter {
	return &ChannelReporter{ch: make(chan ProgressEvent, buffer)}
}

// Events returns the receive side of the reporter.
func (r *ChannelReporter) Events() <-chan ProgressEvent { return r.ch }

func (r *ChannelReporter) Emit(event ProgressEvent) {
	select {
	case r.ch <- event:
	default:
	}
}

// Close closes the event channel. Emit must not be called after Close.
func (r *ChannelReporter) Close() { close(r.ch) }

// MultiReporter fans one event out to several reporters in order.
type MultiReporter []ProgressReporter

func (m MultiReporter) Emit(event ProgressEvent) {
	for _, r := range m {
		r.Emit(event)
	}
}
