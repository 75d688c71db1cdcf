package clock

import (
	"fmt"
	"time"
)

// Clock is the external time source that drives a timeline.
type Clock interface {
	// Now returns the current time according to this clock.
	Now() time.Time

	// Since returns the duration elapsed since t according to this clock.
	Since(t time.Time) time.Duration

	// Ticker returns a ticker that emits clock readings at interval d of
	// clock time. For scaled clocks the wall interval is d/TimeScale.
	Ticker(d time.Duration) *Ticker

	// After returns a channel that receives the clock reading once d of
	// clock time has passed.
	After(d time.Duration) <-chan time.Time

	// Done returns a channel that is closed when the clock is stopped.
	Done() <-chan struct{}

	// Stop stops the clock and releases its tickers.
	Stop()

	// TimeScale returns how many clock seconds pass per wall second.
	TimeScale() float64

	// IsSimulated returns true unless the clock follows wall time 1:1.
	IsSimulated() bool
}

// Mode selects a Clock implementation.
type Mode string

const (
	ModeReal      Mode = "real"
	ModeSimulated Mode = "simulated"
	ModeManual    Mode = "manual"
)

// ParseMode validates a clock mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReal, ModeSimulated, ModeManual:
		return Mode(s), nil
	case "":
		return ModeReal, nil
	}
	return "", fmt.Errorf("unknown clock mode %q (want real, simulated or manual)", s)
}

// New creates a Clock for the given mode. timeScale only applies to
// simulated clocks.
func New(mode Mode, startTime time.Time, timeScale float64) Clock {
	switch mode {
	case ModeSimulated:
		return NewSimulatedClock(startTime, timeScale)
	case ModeManual:
		return NewManualClock(startTime)
	default:
		return NewRealClock()
	}
}

// Seconds converts a clock reading into seconds since epoch, the unit a
// TimeController consumes.
func Seconds(epoch, t time.Time) float64 {
	return t.Sub(epoch).Seconds()
}
