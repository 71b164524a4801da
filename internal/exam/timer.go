package exam

import (
	"sync"
	"time"
)

// Countdown counts remaining exam seconds against wall time. Each tick
// recomputes the remaining time from the start anchor, so delayed or dropped
// ticks never slow the clock down.
type Countdown struct {
	clock    Clock
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	initial   int
	remaining int
	anchor    time.Time
	started   bool
	expired   bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewCountdown creates a stopped countdown with the given number of seconds.
// onTick runs on every change of the remaining time; onExpire runs once, in
// its own goroutine, when zero is reached.
func NewCountdown(clock Clock, seconds int, onTick func(int), onExpire func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	if onTick == nil {
		onTick = func(int) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}
	return &Countdown{
		clock:     clock,
		onTick:    onTick,
		onExpire:  onExpire,
		initial:   seconds,
		remaining: seconds,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Start anchors the countdown to now and launches the ticking goroutine.
// Calling it again has no effect.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.anchor = c.clock.Now()
	c.mu.Unlock()

	ticker := c.clock.NewTicker(time.Second)
	go c.run(ticker)

	// A resumed session may already be out of time.
	c.Tick(c.anchor)
}

func (c *Countdown) run(t Ticker) {
	defer close(c.done)
	defer t.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-t.C():
			if _, expired := c.Tick(now); expired {
				return
			}
		}
	}
}

// Tick reconciles the remaining time with now and reports whether the
// countdown has expired.
func (c *Countdown) Tick(now time.Time) (remaining int, expired bool) {
	c.mu.Lock()
	if !c.started || c.expired {
		remaining, expired = c.remaining, c.expired
		c.mu.Unlock()
		return remaining, expired
	}
	select {
	case <-c.stop:
		remaining = c.remaining
		c.mu.Unlock()
		return remaining, false
	default:
	}

	elapsed := int(now.Sub(c.anchor) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	left := c.initial - elapsed
	if left < 0 {
		left = 0
	}
	if left > c.remaining {
		// Wall clock stepped backwards; never count up.
		left = c.remaining
	}

	changed := left != c.remaining
	c.remaining = left
	justExpired := left == 0
	if justExpired {
		c.expired = true
	}
	c.mu.Unlock()

	if changed {
		c.onTick(left)
	}
	if justExpired {
		go c.onExpire()
	}
	return left, justExpired
}

// Stop halts the countdown and waits for the ticking goroutine to exit. It is
// safe to call more than once and from the onExpire callback.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}
