// Package clock provides the restartable one-second countdown used for the
// per-question and per-session timers.
package clock

import (
	"sync"
	"time"
)

// Countdown is a decrementing clock with a tick callback and an expiry
// callback. A Countdown value is one logical clock: starting a new run
// implicitly cancels any prior run of the same instance, so at most one run
// is ever live. Expiry fires exactly once per run; cancellation afterwards
// is a no-op.
type Countdown struct {
	interval time.Duration

	mu       sync.Mutex
	gen      uint64
	stop     chan struct{}
	onTick   func(remaining int)
	onExpire func()
}

// New returns a countdown ticking once per second.
func New() *Countdown {
	return NewWithInterval(time.Second)
}

// NewWithInterval returns a countdown with a custom tick interval. Tests use
// millisecond intervals to simulate long windows quickly.
func NewWithInterval(interval time.Duration) *Countdown {
	return &Countdown{interval: interval}
}

// Start begins a run of seconds ticks. onTick receives the remaining count
// after each tick; onExpire fires once when it reaches zero. Any previous run
// is cancelled first.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	c.cancelLocked()
	c.onTick = onTick
	c.onExpire = onExpire
	if seconds <= 0 {
		gen := c.gen
		c.mu.Unlock()
		// zero-length window expires immediately
		c.expire(gen, onExpire)
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	gen := c.gen
	c.mu.Unlock()

	go c.run(gen, seconds, stop, onTick, onExpire)
}

// Restart begins a fresh run of seconds using the callbacks from the last
// Start.
func (c *Countdown) Restart(seconds int) {
	c.mu.Lock()
	onTick, onExpire := c.onTick, c.onExpire
	c.mu.Unlock()
	c.Start(seconds, onTick, onExpire)
}

// Cancel stops the current run, if any. Safe to call repeatedly and
// concurrently with expiry.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
}

// cancelLocked retires the current run. Bumping gen makes any in-flight tick
// or expiry from the old run a no-op.
func (c *Countdown) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.gen++
}

func (c *Countdown) run(gen uint64, seconds int, stop chan struct{}, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				c.expire(gen, onExpire)
				return
			}
			if !c.current(gen) {
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
		}
	}
}

// expire retires the run and invokes onExpire outside the lock, but only if
// the run is still current. This is what makes expiry exactly-once and keeps
// a cancelled timer from firing into a stale state.
func (c *Countdown) expire(gen uint64, onExpire func()) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	c.mu.Unlock()
	if onExpire != nil {
		onExpire()
	}
}

func (c *Countdown) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}
