package simulate

import (
	"context"
	"time"

	"github.com/NetPo4ki/go-fanout/clock"
	"github.com/NetPo4ki/go-fanout/scope"
)

// Delay returns a producer that yields value after d. Cancellation is
// observed at the wait; a completion racing a deadline counts as completed.
// Stop is the tie-breaker: it serializes with the clock, so a false return
// means the timer had already fired when the cancellation signal arrived and
// the producer still returns its value.
func Delay(clk clock.Clock, d time.Duration, value any) scope.Producer {
	return func(ctx context.Context) (any, error) {
		t := clk.NewTimer(d)
		select {
		case <-t.C():
			return value, nil
		case <-ctx.Done():
			if !t.Stop() {
				return value, nil
			}
			return nil, context.Cause(ctx)
		}
	}
}

// Failing returns a producer that fails with err after d. The same boundary
// rule as Delay applies: a failure due exactly at a deadline is the task's
// own, not a cancellation.
func Failing(clk clock.Clock, d time.Duration, err error) scope.Producer {
	return func(ctx context.Context) (any, error) {
		t := clk.NewTimer(d)
		select {
		case <-t.C():
			return nil, err
		case <-ctx.Done():
			if !t.Stop() {
				return nil, err
			}
			return nil, context.Cause(ctx)
		}
	}
}

// Crashing returns a producer that panics after d. Exercises the scope's
// panic conversion.
func Crashing(clk clock.Clock, d time.Duration, msg string) scope.Producer {
	return func(ctx context.Context) (any, error) {
		t := clk.NewTimer(d)
		select {
		case <-t.C():
			panic(msg)
		case <-ctx.Done():
			if !t.Stop() {
				panic(msg)
			}
			return nil, context.Cause(ctx)
		}
	}
}

// Hang returns a producer that never completes on its own and only returns
// when cancelled.
func Hang() scope.Producer {
	return func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, context.Cause(ctx)
	}
}
