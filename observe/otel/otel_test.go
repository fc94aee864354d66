package otel

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-fanout/scope"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// The global provider defaults to no-op; this exercises instrument creation
// and every hook without an SDK behind them.
func TestObserverAgainstNoopProvider(t *testing.T) {
	t.Parallel()
	obs, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := scope.New(context.Background(), scope.Isolated, scope.WithObserver(obs))
	s.Spawn("ok", func(_ context.Context) (any, error) { return 1, nil })
	s.Spawn("bad", func(_ context.Context) (any, error) { return nil, errors.New("boom") })
	if err := s.Wait(); err == nil {
		t.Fatal("expected recorded error from isolated scope")
	}
	s2 := scope.New(context.Background(), scope.Linked, scope.WithObserver(obs))
	s2.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s2.CancelAll(errors.New("stop"))
	_ = s2.Wait()
}
