package clock

import (
	"sync"
	"time"
)

// fakeEpoch is the starting instant of every Fake clock. A fixed epoch keeps
// timestamps reproducible across runs.
var fakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Fake is a manually advanced Clock for deterministic tests. Timers fire
// inside Advance, in timestamp order, so outcomes do not depend on
// wall-clock scheduling.
type Fake struct {
	mu     sync.Mutex
	cond   *sync.Cond
	now    time.Time
	timers []*fakeTimer
}

// NewFake returns a Fake positioned at a fixed epoch.
func NewFake() *Fake {
	f := &Fake{now: fakeEpoch}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	return f.NewTimer(d).C()
}

func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clk: f, at: f.now.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		t.ch <- f.now
		t.fired = true
		return t
	}
	f.timers = append(f.timers, t)
	f.cond.Broadcast()
	return t
}

// Advance moves the clock forward by d, firing every pending timer whose
// deadline falls within the window. Timers fire in timestamp order and their
// channels are filled before Advance returns; waking the goroutines that
// select on them is left to the scheduler.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.now.Add(d)
	for {
		next := f.earliest(target)
		if next == nil {
			break
		}
		f.now = next.at
		next.ch <- next.at
		next.fired = true
		f.remove(next)
	}
	f.now = target
	f.cond.Broadcast()
}

// BlockUntil blocks until at least n timers are pending. Tests use it to
// make sure every goroutine under test has parked on the clock before
// advancing it.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.timers) < n {
		f.cond.Wait()
	}
}

// Pending reports the number of timers currently waiting to fire.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// earliest returns the pending timer with the smallest deadline not after
// limit, or nil. Ties resolve to registration order.
func (f *Fake) earliest(limit time.Time) *fakeTimer {
	var best *fakeTimer
	for _, t := range f.timers {
		if t.at.After(limit) {
			continue
		}
		if best == nil || t.at.Before(best.at) {
			best = t
		}
	}
	return best
}

func (f *Fake) remove(t *fakeTimer) {
	for i, cur := range f.timers {
		if cur == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

type fakeTimer struct {
	clk   *Fake
	at    time.Time
	ch    chan time.Time
	fired bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.fired {
		return false
	}
	t.clk.remove(t)
	t.clk.cond.Broadcast()
	t.fired = true
	return true
}
