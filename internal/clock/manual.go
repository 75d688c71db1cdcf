package clock

import (
	"sort"
	"sync"
	"time"
)

// ManualClock only moves when told to. Tickers and After channels fire
// synchronously from Advance and Set, which makes runs reproducible.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*manualTicker]struct{}
	waiters []manualWaiter
	done    chan struct{}
}

type manualTicker struct {
	ch       chan time.Time
	interval time.Duration
	next     time.Time
}

type manualWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManualClock creates a clock frozen at start. A zero start uses
// 2024-01-01T00:00:00Z.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &ManualClock{
		now:     start,
		tickers: make(map[*manualTicker]struct{}),
		done:    make(chan struct{}),
	}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the manual duration elapsed since t.
func (c *ManualClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.Set(target)
}

// Set moves the clock to t and fires every ticker and waiter that became
// due. A ticker that missed several intervals fires once, like time.Ticker.
// Moving the clock backward fires nothing.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t

	for tk := range c.tickers {
		if t.Before(tk.next) {
			continue
		}
		select {
		case tk.ch <- t:
		default:
		}
		for !t.Before(tk.next) {
			tk.next = tk.next.Add(tk.interval)
		}
	}

	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if t.Before(w.deadline) {
			remaining = append(remaining, w)
			continue
		}
		w.ch <- t
	}
	c.waiters = remaining
}

// Ticker returns a ticker that fires whenever the clock crosses a multiple
// of d past the current time. Non-positive intervals panic, matching
// time.NewTicker.
func (c *ManualClock) Ticker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for ManualClock.Ticker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tk := &manualTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.now.Add(d),
	}
	c.tickers[tk] = struct{}{}

	return &Ticker{
		C:      tk.ch,
		stopCh: make(chan struct{}),
		done:   c.done,
		onStop: func() {
			c.mu.Lock()
			delete(c.tickers, tk)
			c.mu.Unlock()
		},
	}
}

// After returns a channel that receives the clock reading once the clock
// has been moved d past the current time.
func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	deadline := c.now.Add(d)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, manualWaiter{deadline: deadline, ch: ch})
	sort.SliceStable(c.waiters, func(i, j int) bool {
		return c.waiters[i].deadline.Before(c.waiters[j].deadline)
	})
	return ch
}

// Pending returns the number of registered tickers and waiters.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers) + len(c.waiters)
}

// Done returns a channel that is closed when the clock is stopped.
func (c *ManualClock) Done() <-chan struct{} {
	return c.done
}

// Stop stops the clock and drops every ticker and waiter.
func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.tickers = make(map[*manualTicker]struct{})
	c.waiters = nil
}

// TimeScale returns 1; manual time has no wall rate.
func (c *ManualClock) TimeScale() float64 {
	return 1
}

// IsSimulated returns true for manual clock.
func (c *ManualClock) IsSimulated() bool {
	return true
}
