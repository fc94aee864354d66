package clock

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFakeStartsAtEpoch(t *testing.T) {
	t.Parallel()
	a := NewFake()
	b := NewFake()
	if !a.Now().Equal(b.Now()) {
		t.Fatalf("fresh fakes disagree: %v vs %v", a.Now(), b.Now())
	}
}

func TestFakeAdvanceFiresDueTimers(t *testing.T) {
	t.Parallel()
	f := NewFake()
	early := f.NewTimer(100 * time.Millisecond)
	late := f.NewTimer(500 * time.Millisecond)

	f.Advance(100 * time.Millisecond)
	select {
	case at := <-early.C():
		if got := at.Sub(fakeEpoch); got != 100*time.Millisecond {
			t.Fatalf("early timer fired at +%v, want +100ms", got)
		}
	default:
		t.Fatal("early timer did not fire at its deadline")
	}
	select {
	case <-late.C():
		t.Fatal("late timer fired before its deadline")
	default:
	}

	f.Advance(400 * time.Millisecond)
	select {
	case <-late.C():
	default:
		t.Fatal("late timer did not fire after full advance")
	}
}

func TestFakeFiresInTimestampOrder(t *testing.T) {
	t.Parallel()
	f := NewFake()
	// Register out of order on purpose.
	b := f.NewTimer(200 * time.Millisecond)
	a := f.NewTimer(100 * time.Millisecond)
	f.Advance(300 * time.Millisecond)

	ta := <-a.C()
	tb := <-b.C()
	if !ta.Before(tb) {
		t.Fatalf("timers fired out of order: a=%v b=%v", ta, tb)
	}
}

func TestFakeImmediateTimer(t *testing.T) {
	t.Parallel()
	f := NewFake()
	zero := f.NewTimer(0)
	select {
	case <-zero.C():
	default:
		t.Fatal("zero-duration timer should fire immediately")
	}
}

func TestFakeStop(t *testing.T) {
	t.Parallel()
	f := NewFake()
	tm := f.NewTimer(50 * time.Millisecond)
	if !tm.Stop() {
		t.Fatal("Stop on pending timer should report true")
	}
	if tm.Stop() {
		t.Fatal("second Stop should report false")
	}
	f.Advance(time.Second)
	select {
	case <-tm.C():
		t.Fatal("stopped timer fired")
	default:
	}
	if n := f.Pending(); n != 0 {
		t.Fatalf("expected no pending timers, got %d", n)
	}
}

func TestFakeBlockUntil(t *testing.T) {
	t.Parallel()
	f := NewFake()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.BlockUntil(2)
	}()
	f.NewTimer(time.Second)
	select {
	case <-done:
		t.Fatal("BlockUntil(2) returned with one pending timer")
	case <-time.After(20 * time.Millisecond):
	}
	f.NewTimer(time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BlockUntil(2) did not return after second timer")
	}
	f.Advance(time.Second)
}

func TestRealClockFires(t *testing.T) {
	t.Parallel()
	c := Real()
	start := c.Now()
	<-c.After(10 * time.Millisecond)
	if elapsed := c.Now().Sub(start); elapsed < 10*time.Millisecond {
		t.Fatalf("After returned too early: %v", elapsed)
	}
	tm := c.NewTimer(time.Hour)
	if !tm.Stop() {
		t.Fatal("Stop on fresh real timer should report true")
	}
}
