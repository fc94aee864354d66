package scope

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// State is the lifecycle position of one task. Transitions are monotonic:
// Pending -> Running -> one of {Completed, Failed, Cancelled}, and a terminal
// task never transitions again.
type State int32

const (
	Pending State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Completed || s == Failed || s == Cancelled }

// Kind classifies a terminal task for aggregation.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailed
	KindTimedOut
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailed:
		return "failed"
	case KindTimedOut:
		return "timed_out"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the immutable terminal classification of one task. It is written
// exactly once, when the task reaches a terminal state.
type Outcome struct {
	Kind  Kind
	Value any
	Err   error
}

// Classify maps a producer's returned error to an outcome kind. Deadline
// causes count as timeouts, plain cancellation as collateral, anything else
// as the task's own failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimedOut
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindFailed
	}
}

// Producer is the unit of asynchronous work a scope runs. It must honor ctx
// at its suspension points; cancellation is cooperative, never preemptive.
type Producer func(ctx context.Context) (any, error)

// Handle is the join point for one spawned task. The owning scope holds it to
// enumerate children; callers hold it to join. A handle's outcome is valid
// once Done() is closed and never changes afterwards.
type Handle struct {
	name   string
	state  atomic.Int32
	done   chan struct{}
	cancel context.CancelCauseFunc

	// Written by the runner goroutine before done is closed; the channel
	// close publishes them to readers.
	outcome Outcome
	started time.Time
}

func newHandle(name string, cancel context.CancelCauseFunc) *Handle {
	return &Handle{name: name, done: make(chan struct{}), cancel: cancel}
}

// Name returns the task's logical name.
func (h *Handle) Name() string { return h.name }

// State returns the task's current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Terminal reports whether the task has reached a terminal state.
func (h *Handle) Terminal() bool { return h.State().Terminal() }

// Done returns a channel closed when the task reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel signals cancellation to this task only, with the given cause.
// The task observes it at its next suspension point.
func (h *Handle) Cancel(cause error) { h.cancel(cause) }

// Join blocks until the task is terminal or ctx is done, then returns the
// task's value or re-raises its failure.
func (h *Handle) Join(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.outcome.Value, h.outcome.Err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// Outcome returns the task's terminal classification. The second return is
// false while the task is still pending or running.
func (h *Handle) Outcome() (Outcome, bool) {
	select {
	case <-h.done:
		return h.outcome, true
	default:
		return Outcome{}, false
	}
}

// settle records the terminal outcome exactly once and wakes joiners.
func (h *Handle) settle(value any, err error) {
	kind := Classify(err)
	switch kind {
	case KindSuccess:
		h.outcome = Outcome{Kind: KindSuccess, Value: value}
		h.state.Store(int32(Completed))
	case KindFailed:
		h.outcome = Outcome{Kind: KindFailed, Err: err}
		h.state.Store(int32(Failed))
	default:
		// Timeouts and cancellation both arrive as external signals.
		h.outcome = Outcome{Kind: kind, Err: err}
		h.state.Store(int32(Cancelled))
	}
	close(h.done)
}
