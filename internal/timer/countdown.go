// Package timer implements the attempt countdown: a wall-clock based
// decrementing clock that periodically persists its remaining time and signals
// expiry exactly once.
package timer

import (
	"fmt"
	"sync"
	"time"
)

// FlushError wraps a failed remaining-time persistence. Flush failures never
// interrupt the countdown; they are handed to the diagnostics hook so tests
// and operators can still see them.
type FlushError struct {
	Seconds int
	Err     error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush remaining time (%ds): %v", e.Seconds, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// Config configures a Countdown.
type Config struct {
	// InitialSeconds seeds the clock, read from the attempt's stored
	// remaining time at load.
	InitialSeconds int
	// FlushInterval is how often the persistence loop wakes up.
	FlushInterval time.Duration
	// FlushThreshold is the minimum change in seconds since the last
	// persisted value before a flush fires.
	FlushThreshold int
	// OnExpire is invoked exactly once when remaining time reaches zero.
	OnExpire func()
	// Flush persists the current remaining time.
	Flush func(seconds int) error
	// OnFlushError receives *FlushError values. Optional.
	OnFlushError func(err error)
	// Clock overrides time.Now for tests. Optional.
	Clock func() time.Time
}

// Countdown counts an attempt's remaining seconds down in wall-clock time.
// Remaining time is always derived from a timestamp delta, never from counting
// ticks, so delayed ticks cannot accumulate drift.
type Countdown struct {
	mu          sync.Mutex
	now         func() time.Time
	startedAt   time.Time
	initial     int
	lastFlushed int
	threshold   int
	interval    time.Duration
	expired     bool
	stopped     bool

	onExpire     func()
	flush        func(seconds int) error
	onFlushError func(err error)

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Countdown. The clock starts at the first Start call.
func New(cfg Config) *Countdown {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	threshold := cfg.FlushThreshold
	if threshold <= 0 {
		threshold = 5
	}

	return &Countdown{
		now:          now,
		initial:      cfg.InitialSeconds,
		lastFlushed:  cfg.InitialSeconds,
		threshold:    threshold,
		interval:     interval,
		onExpire:     cfg.OnExpire,
		flush:        cfg.Flush,
		onFlushError: cfg.OnFlushError,
		stop:         make(chan struct{}),
	}
}

// Start launches the decrement and persistence loops. Call once.
func (c *Countdown) Start() {
	c.mu.Lock()
	c.startedAt = c.now()
	c.mu.Unlock()

	go c.run()
}

func (c *Countdown) run() {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	persist := time.NewTicker(c.interval)
	defer persist.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-tick.C:
			c.Tick()
		case <-persist.C:
			c.MaybeFlush()
		}
	}
}

// Stop halts both loops. No expiry callback and no flush runs after Stop
// returns.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	c.stopOnce.Do(func() { close(c.stop) })
}

// Remaining returns the current remaining seconds, never negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Countdown) remainingLocked() int {
	if c.startedAt.IsZero() {
		return c.initial
	}
	elapsed := int(c.now().Sub(c.startedAt) / time.Second)
	remaining := c.initial - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tick checks for expiry. The Running -> Expired transition happens exactly
// once; ticks after expiry or Stop are no-ops.
func (c *Countdown) Tick() {
	c.mu.Lock()
	if c.stopped || c.expired || c.remainingLocked() > 0 {
		c.mu.Unlock()
		return
	}
	c.expired = true
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}

// MaybeFlush persists the current remaining time if it has moved at least the
// threshold since the last persisted value. Failures go to the diagnostics
// hook and leave the last-persisted marker untouched, so the next interval
// retries.
func (c *Countdown) MaybeFlush() {
	c.mu.Lock()
	if c.stopped || c.expired || c.flush == nil {
		c.mu.Unlock()
		return
	}
	remaining := c.remainingLocked()
	if c.lastFlushed-remaining < c.threshold {
		c.mu.Unlock()
		return
	}
	flush := c.flush
	c.mu.Unlock()

	if err := flush(remaining); err != nil {
		c.mu.Lock()
		hook := c.onFlushError
		c.mu.Unlock()
		if hook != nil {
			hook(&FlushError{Seconds: remaining, Err: err})
		}
		return
	}

	c.mu.Lock()
	c.lastFlushed = remaining
	c.mu.Unlock()
}
