package clock

import (
	"sync"
	"time"
)

// minWallInterval keeps scaled tickers from busy-looping.
const minWallInterval = time.Millisecond

// SimulatedClock runs at timeScale clock seconds per wall second, starting
// at startTime.
type SimulatedClock struct {
	startRealTime time.Time
	startSimTime  time.Time
	timeScale     float64
	done          chan struct{}
	mu            sync.Mutex
}

// NewSimulatedClock creates a new SimulatedClock. Non-positive scales
// default to 1.
func NewSimulatedClock(startTime time.Time, timeScale float64) *SimulatedClock {
	if timeScale <= 0 {
		timeScale = 1
	}
	return &SimulatedClock{
		startRealTime: time.Now(),
		startSimTime:  startTime,
		timeScale:     timeScale,
		done:          make(chan struct{}),
	}
}

// Now returns startSimTime + elapsed wall time * timeScale.
func (c *SimulatedClock) Now() time.Time {
	return c.startSimTime.Add(c.SimulatedDuration(time.Since(c.startRealTime)))
}

// Since returns the simulated duration elapsed since t.
func (c *SimulatedClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Ticker returns a ticker that emits simulated readings every d of
// simulated time.
func (c *SimulatedClock) Ticker(d time.Duration) *Ticker {
	realInterval := c.RealDuration(d)
	if realInterval < minWallInterval {
		realInterval = minWallInterval
	}

	ch := make(chan time.Time, 1)
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(realInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				select {
				case ch <- c.Now():
				default:
					// Consumer is behind; it reads Now on the next tick anyway.
				}
			case <-stopCh:
				return
			case <-c.done:
				return
			}
		}
	}()

	return &Ticker{
		C:      ch,
		stopCh: stopCh,
		done:   c.done,
	}
}

// After returns a channel that receives the simulated time after d of
// simulated time.
func (c *SimulatedClock) After(d time.Duration) <-chan time.Time {
	realDuration := c.RealDuration(d)
	if realDuration < minWallInterval {
		realDuration = minWallInterval
	}

	ch := make(chan time.Time, 1)
	go func() {
		select {
		case <-time.After(realDuration):
			ch <- c.Now()
		case <-c.done:
		}
	}()
	return ch
}

// Done returns a channel that is closed when the clock is stopped.
func (c *SimulatedClock) Done() <-chan struct{} {
	return c.done
}

// Stop stops the clock and signals all waiting operations.
func (c *SimulatedClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// TimeScale returns the time scale factor.
func (c *SimulatedClock) TimeScale() float64 {
	return c.timeScale
}

// IsSimulated returns true for simulated clock.
func (c *SimulatedClock) IsSimulated() bool {
	return true
}

// SimulatedDuration converts a wall duration to simulated duration.
func (c *SimulatedClock) SimulatedDuration(realDuration time.Duration) time.Duration {
	return time.Duration(float64(realDuration) * c.timeScale)
}

// RealDuration converts a simulated duration to wall duration.
func (c *SimulatedClock) RealDuration(simDuration time.Duration) time.Duration {
	return time.Duration(float64(simDuration) / c.timeScale)
}
