package timer

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// newStarted builds a countdown with its clock armed but without launching
// the background loops, so tests drive Tick/MaybeFlush deterministically.
func newStarted(cfg Config, clock *fakeClock) *Countdown {
	cfg.Clock = clock.Now
	c := New(cfg)
	c.startedAt = clock.Now()
	return c
}

func TestRemainingFollowsWallClock(t *testing.T) {
	clock := newFakeClock()
	c := newStarted(Config{InitialSeconds: 600}, clock)

	if got := c.Remaining(); got != 600 {
		t.Fatalf("remaining at start = %d, want 600", got)
	}

	// Delayed ticks must not matter: remaining comes from the clock delta.
	clock.Advance(73 * time.Second)
	if got := c.Remaining(); got != 527 {
		t.Fatalf("remaining after 73s = %d, want 527", got)
	}

	clock.Advance(1000 * time.Second)
	if got := c.Remaining(); got != 0 {
		t.Fatalf("remaining past expiry = %d, want 0 (never negative)", got)
	}
}

func TestRemainingIsMonotonic(t *testing.T) {
	clock := newFakeClock()
	c := newStarted(Config{InitialSeconds: 120}, clock)

	prev := c.Remaining()
	for i := 0; i < 150; i++ {
		clock.Advance(time.Second)
		c.Tick()
		cur := c.Remaining()
		if cur > prev {
			t.Fatalf("remaining increased from %d to %d", prev, cur)
		}
		if cur < 0 {
			t.Fatalf("remaining went negative: %d", cur)
		}
		prev = cur
	}
	if prev != 0 {
		t.Fatalf("remaining after full run = %d, want 0", prev)
	}
}

func TestExpireFiresExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	expirations := 0
	c := newStarted(Config{
		InitialSeconds: 10,
		OnExpire:       func() { expirations++ },
	}, clock)

	clock.Advance(9 * time.Second)
	c.Tick()
	if expirations != 0 {
		t.Fatalf("expired early with 1s remaining")
	}

	clock.Advance(time.Second)
	c.Tick()
	if expirations != 1 {
		t.Fatalf("expirations = %d after reaching zero, want 1", expirations)
	}

	// Further ticks after expiry are no-ops.
	clock.Advance(30 * time.Second)
	c.Tick()
	c.Tick()
	if expirations != 1 {
		t.Fatalf("expirations = %d after extra ticks, want 1", expirations)
	}
}

func TestFlushRespectsThreshold(t *testing.T) {
	clock := newFakeClock()
	var flushed []int
	c := newStarted(Config{
		InitialSeconds: 300,
		FlushThreshold: 5,
		Flush: func(s int) error {
			flushed = append(flushed, s)
			return nil
		},
	}, clock)

	// Below the threshold: nothing persisted.
	clock.Advance(3 * time.Second)
	c.MaybeFlush()
	if len(flushed) != 0 {
		t.Fatalf("flushed %v below threshold", flushed)
	}

	// At the threshold: persisted once.
	clock.Advance(2 * time.Second)
	c.MaybeFlush()
	if len(flushed) != 1 || flushed[0] != 295 {
		t.Fatalf("flushed = %v, want [295]", flushed)
	}

	// No change since the last persisted value: skipped again.
	c.MaybeFlush()
	if len(flushed) != 1 {
		t.Fatalf("flushed = %v after no-op interval, want one entry", flushed)
	}

	clock.Advance(7 * time.Second)
	c.MaybeFlush()
	if len(flushed) != 2 || flushed[1] != 288 {
		t.Fatalf("flushed = %v, want [295 288]", flushed)
	}
}

func TestFlushFailureDoesNotStopCountdown(t *testing.T) {
	clock := newFakeClock()
	boom := errors.New("store unavailable")
	fail := true
	var flushed []int
	var reported []error
	c := newStarted(Config{
		InitialSeconds: 300,
		FlushThreshold: 5,
		Flush: func(s int) error {
			if fail {
				return boom
			}
			flushed = append(flushed, s)
			return nil
		},
		OnFlushError: func(err error) { reported = append(reported, err) },
	}, clock)

	clock.Advance(10 * time.Second)
	c.MaybeFlush()

	if len(reported) != 1 {
		t.Fatalf("reported %d flush errors, want 1", len(reported))
	}
	var fe *FlushError
	if !errors.As(reported[0], &fe) {
		t.Fatalf("reported error %T, want *FlushError", reported[0])
	}
	if !errors.Is(reported[0], boom) {
		t.Fatalf("flush error does not wrap the cause")
	}

	// The clock kept running and the next successful flush carries the
	// current value, not the failed one.
	if got := c.Remaining(); got != 290 {
		t.Fatalf("remaining after failed flush = %d, want 290", got)
	}
	fail = false
	clock.Advance(5 * time.Second)
	c.MaybeFlush()
	if len(flushed) != 1 || flushed[0] != 285 {
		t.Fatalf("flushed = %v after recovery, want [285]", flushed)
	}
}

func TestStopHaltsBothLoops(t *testing.T) {
	clock := newFakeClock()
	expirations := 0
	flushes := 0
	c := newStarted(Config{
		InitialSeconds: 30,
		FlushThreshold: 5,
		OnExpire:       func() { expirations++ },
		Flush: func(int) error {
			flushes++
			return nil
		},
	}, clock)

	c.Stop()

	clock.Advance(60 * time.Second)
	c.Tick()
	c.MaybeFlush()

	if expirations != 0 {
		t.Fatalf("expiry fired after Stop")
	}
	if flushes != 0 {
		t.Fatalf("flush ran after Stop")
	}
}

func TestStartedCountdownExpiresViaLoop(t *testing.T) {
	// One black-box run through Start/Stop with the real ticker to make
	// sure the loop wiring fires the callback.
	done := make(chan struct{})
	c := New(Config{
		InitialSeconds: 1,
		OnExpire:       func() { close(done) },
	})
	c.Start()
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown did not expire")
	}
}
