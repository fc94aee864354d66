package scope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NetPo4ki/go-fanout/clock"
)

// Mode selects the failure-propagation policy of a scope.
type Mode int

const (
	// Linked: the first child failure cancels all siblings and fails the
	// scope as a unit. No partial success is observable.
	Linked Mode = iota
	// Isolated: child failures are contained; siblings keep running and
	// callers inspect each child's Outcome.
	Isolated
)

type Option func(*Options)

type Options struct {
	PanicAsError   bool
	Observer       Observer
	MaxConcurrency int
	Clock          clock.Clock
}

func defaultOptions() Options { return Options{PanicAsError: true, Clock: clock.Real()} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

func WithClock(c clock.Clock) Option {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

// Observer receives task and scope state transitions. Implementations must be
// safe for concurrent use.
type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeCancelled(ctx context.Context, cause error)
	ScopeJoined(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context, name string)
	TaskFinished(ctx context.Context, name string, dur time.Duration, kind Kind, err error)
}

// Scope is a structured-concurrency boundary owning an ordered set of tasks.
type Scope struct {
	ctx      context.Context
	cancel   context.CancelFunc
	mode     Mode
	wg       sync.WaitGroup
	mu       sync.Mutex
	handles  []*Handle
	firstErr error
	canceled bool

	opts Options
	obs  Observer
	lim  Limiter
	clk  clock.Clock
}

// New creates a scope bound to parent. Cancelling parent cancels every child.
func New(parent context.Context, mode Mode, optFns ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Scope{ctx: ctx, cancel: cancel, mode: mode, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	s.obs = s.opts.Observer
	s.clk = s.opts.Clock
	if s.opts.MaxConcurrency > 0 {
		s.lim = newSemaphoreLimiter(s.opts.MaxConcurrency)
	}
	if s.obs != nil {
		s.obs.ScopeCreated(ctx)
	}
	return s
}

func (s *Scope) Context() context.Context { return s.ctx }

// Mode returns the scope's failure-propagation mode.
func (s *Scope) Mode() Mode { return s.mode }

// Spawn starts producer as a child task and returns its join handle. Each
// task gets its own cancellable context derived from the scope's, so a
// single task can be cancelled without touching its siblings.
func (s *Scope) Spawn(name string, p Producer) *Handle {
	hctx, hcancel := context.WithCancelCause(s.ctx)
	h := newHandle(name, hcancel)
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	if p == nil {
		err := fmt.Errorf("scope: nil producer for task %q", name)
		h.settle(nil, err)
		s.fail(err)
		return h
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer hcancel(nil)
		if s.lim != nil {
			if err := s.lim.Acquire(hctx); err != nil {
				// Aborted while queued: the task never ran, so observers
				// see neither a start nor a finish for it.
				h.settle(nil, err)
				s.fail(err)
				return
			}
			defer s.lim.Release()
		}
		h.state.Store(int32(Running))
		h.started = s.clk.Now()
		if s.obs != nil {
			s.obs.TaskStarted(hctx, name)
		}
		v, err := s.runProducer(hctx, p)
		s.finishTask(hctx, h, v, err)
	}()
	return h
}

// Go runs fn as an unnamed task, errgroup-style. It exists for callers that
// only care about the scope-level error from Wait.
func (s *Scope) Go(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.Spawn("", func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
}

// runProducer invokes p, converting panics per the scope's options.
func (s *Scope) runProducer(ctx context.Context, p Producer) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if !s.opts.PanicAsError {
				panic(r)
			}
			v, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return p(ctx)
}

func (s *Scope) finishTask(ctx context.Context, h *Handle, v any, err error) {
	now := s.clk.Now()
	h.settle(v, err)
	if err != nil {
		s.fail(err)
	}
	if s.obs != nil {
		s.obs.TaskFinished(ctx, h.name, now.Sub(h.started), h.outcome.Kind, err)
	}
}

// CancelAll signals cancellation to every child and records reason as the
// scope's failure cause if none is set yet. Idempotent.
func (s *Scope) CancelAll(reason error) {
	s.mu.Lock()
	wasCanceled := s.canceled
	s.canceled = true
	if s.firstErr == nil && reason != nil {
		s.firstErr = reason
	}
	cause := s.firstErr
	s.mu.Unlock()

	s.cancel()
	if !wasCanceled && s.obs != nil {
		s.obs.ScopeCancelled(s.ctx, cause)
	}
}

// Wait blocks until every child is terminal and returns the scope's first
// failure, or nil. Safe to call more than once.
func (s *Scope) Wait() error {
	var start time.Time
	if s.obs != nil {
		start = s.clk.Now()
	}
	s.wg.Wait()
	if s.obs != nil {
		s.obs.ScopeJoined(s.ctx, s.clk.Now().Sub(start))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// JoinAll blocks until every child spawned so far is terminal, or ctx is
// done, and returns their outcomes in spawn order. On early ctx expiry the
// outcomes gathered so far are returned alongside the cause.
func (s *Scope) JoinAll(ctx context.Context) ([]Outcome, error) {
	s.mu.Lock()
	handles := make([]*Handle, len(s.handles))
	copy(handles, s.handles)
	s.mu.Unlock()

	outs := make([]Outcome, len(handles))
	for i, h := range handles {
		select {
		case <-h.done:
			outs[i] = h.outcome
		case <-ctx.Done():
			return outs[:i], context.Cause(ctx)
		}
	}
	return outs, nil
}

// Handles returns the scope's children in spawn order.
func (s *Scope) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// fail records the first error; under Linked it also cancels the siblings.
// The failing child records its cause before the cascade starts, so
// collateral cancellations never displace the root cause.
func (s *Scope) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	shouldCancel := s.mode == Linked
	cause := s.firstErr
	s.mu.Unlock()
	if shouldCancel {
		s.CancelAll(cause)
	}
}

// Child creates a nested scope inheriting this scope's options and context.
func (s *Scope) Child(mode Mode, optFns ...Option) *Scope {
	childOpts := s.opts
	for _, fn := range optFns {
		fn(&childOpts)
	}
	ctx, cancel := context.WithCancel(s.ctx)
	cs := &Scope{ctx: ctx, cancel: cancel, mode: mode, opts: childOpts, obs: childOpts.Observer, clk: childOpts.Clock}
	if childOpts.MaxConcurrency > 0 {
		cs.lim = newSemaphoreLimiter(childOpts.MaxConcurrency)
	}
	if cs.obs != nil {
		cs.obs.ScopeCreated(ctx)
	}
	return cs
}
