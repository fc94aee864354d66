package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/NetPo4ki/go-fanout/clock"
	"github.com/NetPo4ki/go-fanout/scope"
)

type Option func(*options)

type options struct {
	clk            clock.Clock
	obs            scope.Observer
	maxConcurrency int
}

func defaultRunOptions() options { return options{clk: clock.Real()} }

// WithClock injects the time source used for budgets and elapsed time.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clk = c
		}
	}
}

// WithObserver attaches an observer to the run's scope.
func WithObserver(obs scope.Observer) Option { return func(o *options) { o.obs = obs } }

// WithMaxConcurrency bounds how many tasks run at once.
func WithMaxConcurrency(n int) Option { return func(o *options) { o.maxConcurrency = n } }

// Run spawns tasks into one scope and folds their outcomes into a Result per
// policy. The returned error reports misuse (an invalid policy or task set);
// orchestration failures land in Result.Err with Status Failed.
func Run(ctx context.Context, tasks []Task, p Policy, optFns ...Option) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultRunOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if err := p.validate(tasks); err != nil {
		return Result{}, err
	}

	sopts := []scope.Option{scope.WithClock(o.clk)}
	if o.obs != nil {
		sopts = append(sopts, scope.WithObserver(o.obs))
	}
	if o.maxConcurrency > 0 {
		sopts = append(sopts, scope.WithMaxConcurrency(o.maxConcurrency))
	}

	r := &run{tasks: tasks, p: p, clk: o.clk, start: o.clk.Now()}
	r.s = scope.New(ctx, p.Mode, sopts...)
	r.handles = make([]*scope.Handle, len(tasks))
	for i, t := range tasks {
		r.handles[i] = r.s.Spawn(t.Name, t.Run)
	}

	switch p.Deadline {
	case PerTaskSoft:
		return r.joinSoft(ctx), nil
	case PerTaskHard:
		return r.joinHard(ctx), nil
	case GlobalHard:
		return r.joinGlobal(ctx), nil
	default:
		return r.joinPlain(ctx), nil
	}
}

// run carries the state of one orchestration: the scope, its handles in task
// order, and the clock the deadline controllers race against.
type run struct {
	tasks   []Task
	p       Policy
	clk     clock.Clock
	start   time.Time
	s       *scope.Scope
	handles []*scope.Handle
}

func (r *run) elapsed() time.Duration { return r.clk.Now().Sub(r.start) }

func (r *run) failed(err error) Result {
	return Result{Status: Failed, Values: map[string]any{}, Elapsed: r.elapsed(), Err: err}
}

// joinPlain waits for every task and aggregates. Under Linked a failure hides
// all sibling values; under Isolated each outcome is folded individually.
func (r *run) joinPlain(ctx context.Context) Result {
	outs, err := r.s.JoinAll(ctx)
	if err != nil {
		r.s.CancelAll(err)
		_ = r.s.Wait()
		return r.failed(err)
	}
	if r.p.Mode == scope.Linked {
		if werr := r.s.Wait(); werr != nil {
			return r.failed(werr)
		}
	}
	return r.assemble(outs, false)
}

// joinSoft applies a non-cancelling wait limit per budgeted task. On expiry
// the waiter gives up but leaves the producer running; the scope drains off
// the caller's path.
func (r *run) joinSoft(ctx context.Context) Result {
	outs := make([]scope.Outcome, len(r.handles))
	var wg sync.WaitGroup
	for i := range r.handles {
		i, h := i, r.handles[i]
		budget, budgeted := r.p.Budgets[r.tasks[i].Name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !budgeted {
				outs[i] = r.waitOne(ctx, h)
				return
			}
			t := r.clk.NewTimer(budget)
			defer t.Stop()
			select {
			case <-h.Done():
				outs[i], _ = h.Outcome()
			case <-t.C():
				// Wait limit reached. The completion may have raced the
				// limit in; keep it if it did, abandon the task otherwise.
				if o, ok := h.Outcome(); ok {
					outs[i] = o
				} else {
					outs[i] = scope.Outcome{Kind: scope.KindTimedOut, Err: context.DeadlineExceeded}
				}
			case <-ctx.Done():
				if o, ok := h.Outcome(); ok {
					outs[i] = o
				} else {
					outs[i] = scope.Outcome{Kind: scope.KindCancelled, Err: context.Cause(ctx)}
				}
			}
		}()
	}
	wg.Wait()
	// Abandoned producers keep running until the scope closes; drain it in
	// the background so the aggregate is not held up.
	go func() { _ = r.s.Wait() }()
	return r.assemble(outs, false)
}

// joinHard arms a cancelling watchdog per budgeted task, then waits for all.
func (r *run) joinHard(ctx context.Context) Result {
	for i := range r.handles {
		h := r.handles[i]
		budget, budgeted := r.p.Budgets[r.tasks[i].Name]
		if !budgeted {
			continue
		}
		go func() {
			t := r.clk.NewTimer(budget)
			defer t.Stop()
			select {
			case <-h.Done():
			case <-t.C():
				h.Cancel(context.DeadlineExceeded)
			}
		}()
	}
	outs, err := r.s.JoinAll(ctx)
	if err != nil {
		r.s.CancelAll(err)
		_ = r.s.Wait()
		return r.failed(err)
	}
	return r.assemble(outs, false)
}

// joinGlobal races the whole task set against one budget. A task whose
// completion races the expiry counts as completed: expiry cancels the scope,
// the join collects whatever turned terminal, and only non-success outcomes
// are treated as cut off.
func (r *run) joinGlobal(ctx context.Context) Result {
	waitErr := make(chan error, 1)
	go func() { waitErr <- r.s.Wait() }()

	t := r.clk.NewTimer(r.p.GlobalBudget)
	defer t.Stop()

	var expired bool
	var scopeErr error
	select {
	case scopeErr = <-waitErr:
	case <-t.C():
		expired = true
		r.s.CancelAll(ErrDeadlineExceeded)
		<-waitErr
	case <-ctx.Done():
		cause := context.Cause(ctx)
		r.s.CancelAll(cause)
		<-waitErr
		return r.failed(cause)
	}

	// Every child is terminal here, so this returns immediately.
	outs, _ := r.s.JoinAll(context.Background())

	if r.p.OnExpiry == FailClosed {
		if expired {
			if anyNonSuccess(outs) {
				return r.failed(ErrDeadlineExceeded)
			}
			// Everything landed on the boundary; nothing was cut off.
			return r.assemble(outs, false)
		}
		if scopeErr != nil {
			return r.failed(scopeErr)
		}
		return r.assemble(outs, false)
	}
	return r.assemble(outs, expired)
}

func (r *run) waitOne(ctx context.Context, h *scope.Handle) scope.Outcome {
	select {
	case <-h.Done():
		o, _ := h.Outcome()
		return o
	case <-ctx.Done():
		if o, ok := h.Outcome(); ok {
			return o
		}
		return scope.Outcome{Kind: scope.KindCancelled, Err: context.Cause(ctx)}
	}
}

// assemble folds per-task outcomes into the aggregate. Global-hard runs
// exclude non-success outcomes; other policies substitute fallbacks.
func (r *run) assemble(outs []scope.Outcome, expired bool) Result {
	values := make(map[string]any, len(r.tasks))
	outcomes := make(map[string]scope.Outcome, len(r.tasks))
	excluded := 0
	harvesting := r.p.Deadline == GlobalHard
	for i, t := range r.tasks {
		o := outs[i]
		outcomes[t.Name] = o
		if o.Kind == scope.KindSuccess {
			values[t.Name] = o.Value
			continue
		}
		if harvesting {
			excluded++
			continue
		}
		if fb, ok := r.p.Fallbacks[t.Name]; ok {
			values[t.Name] = fb.substitute(o.Kind)
			continue
		}
		excluded++
	}
	status := Complete
	if expired && excluded > 0 {
		status = PartialTimeout
	}
	return Result{
		Status:   status,
		Values:   values,
		Outcomes: outcomes,
		Excluded: excluded,
		Elapsed:  r.elapsed(),
	}
}

func anyNonSuccess(outs []scope.Outcome) bool {
	for _, o := range outs {
		if o.Kind != scope.KindSuccess {
			return true
		}
	}
	return false
}
