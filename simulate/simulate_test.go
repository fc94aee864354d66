package simulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-fanout/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDelayYieldsValue(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake()
	p := Delay(clk, 100*time.Millisecond, "quote")
	type res struct {
		v   any
		err error
	}
	ch := make(chan res, 1)
	go func() {
		v, err := p(context.Background())
		ch <- res{v, err}
	}()
	clk.BlockUntil(1)
	clk.Advance(100 * time.Millisecond)
	got := <-ch
	if got.err != nil || got.v != "quote" {
		t.Fatalf("expected quote, got %+v", got)
	}
}

func TestDelayObservesCancellation(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake()
	p := Delay(clk, time.Hour, "never")
	ctx, cancel := context.WithCancelCause(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := p(ctx)
		errCh <- err
	}()
	clk.BlockUntil(1)
	cause := errors.New("abort")
	cancel(cause)
	if err := <-errCh; !errors.Is(err, cause) {
		t.Fatalf("expected cancellation cause, got %v", err)
	}
}

func TestDelayPrefersFiredTimerOverCancel(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A zero-duration timer is already fired when the producer selects, and
	// the context is already cancelled: both channels are ready. The recheck
	// must keep the value no matter which branch the select takes.
	for i := 0; i < 100; i++ {
		v, err := Delay(clk, 0, "boundary")(ctx)
		if err != nil {
			t.Fatalf("fired timer lost to cancellation on run %d: %v", i, err)
		}
		if v != "boundary" {
			t.Fatalf("unexpected value on run %d: %v", i, v)
		}
	}
}

// A deadline-style timer registered before the producer's fires first inside
// Advance, so the cancellation can land while the producer's own channel is
// still being filled. The Stop sample must still report the timer as fired.
func TestDelayBoundarySurvivesMidAdvanceCancel(t *testing.T) {
	t.Parallel()
	const d = 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		clk := clock.NewFake()
		deadline := clk.NewTimer(d)
		ctx, cancel := context.WithCancelCause(context.Background())
		type res struct {
			v   any
			err error
		}
		ch := make(chan res, 1)
		go func() {
			v, err := Delay(clk, d, "boundary")(ctx)
			ch <- res{v, err}
		}()
		clk.BlockUntil(2)
		go func() {
			<-deadline.C()
			cancel(context.DeadlineExceeded)
		}()
		clk.Advance(d)
		got := <-ch
		if got.err != nil {
			t.Fatalf("boundary completion lost to cancellation on run %d: %v", i, got.err)
		}
		if got.v != "boundary" {
			t.Fatalf("unexpected value on run %d: %v", i, got.v)
		}
	}
}

func TestFailingFailsAfterDelay(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake()
	boom := errors.New("boom")
	p := Failing(clk, 50*time.Millisecond, boom)
	errCh := make(chan error, 1)
	go func() {
		_, err := p(context.Background())
		errCh <- err
	}()
	clk.BlockUntil(1)
	clk.Advance(50 * time.Millisecond)
	if err := <-errCh; !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestHangReturnsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Hang()(ctx)
		errCh <- err
	}()
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
