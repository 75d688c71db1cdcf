package controller

import (
	"fmt"
	"math"
)

// Status is the state a TimeController resolved to on its last tick.
//
//	          Update            iterations exhausted
//	Playing ─────────► Playing ─────────────────────► Completed
//	                      │
//	                      │ iterations exhausted, persist
//	                      ▼
//	                  Persisting
//
// Completed is terminal for the controller; a host re-arms it by seeking
// with GoTo and ticking again.
type Status int

const (
	// StatusPlaying means local time is inside the timeline or still looping.
	StatusPlaying Status = iota
	// StatusPersisting means the iterations are exhausted and local time is
	// clamped at the end or the start instead of completing.
	StatusPersisting
	// StatusCompleted means the completion hook fired on the last tick.
	StatusCompleted
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPersisting:
		return "persisting"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus parses the String form of a status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "playing":
		return StatusPlaying, nil
	case "persisting":
		return StatusPersisting, nil
	case "completed":
		return StatusCompleted, nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// TimeController maps an external clock onto the local time of a Playable.
//
// Local time is (timeNow - timeStart) * speed. Changing the speed or seeking
// re-derives timeStart so that local time never jumps; only its rate of
// change does. A speed of 0 freezes local time while keeping it seekable, in
// which case the controller behaves as if the virtual rate were 1.
//
// A TimeController is not safe for concurrent use. Callers that seek or
// change speed from another goroutine must serialize those calls with Update.
type TimeController struct {
	playable Playable
	onUpdate UpdateFunc

	speed     float64
	timeStart float64
	timeNow   float64

	iterations float64
	persist    bool
	pingpong   bool
	pongping   bool

	status    Status
	iteration float64
	overflow  Overflow
}

// New creates a controller driving p with speed 1 and a single iteration.
func New(p Playable) *TimeController {
	if p == nil {
		panic("controller: nil Playable")
	}
	return &TimeController{
		playable:   p,
		speed:      1,
		iterations: 1,
		status:     StatusPlaying,
	}
}

// Start anchors local time 0 at the external clock reading now.
func (c *TimeController) Start(now float64) *TimeController {
	c.timeNow = now
	c.timeStart = now
	c.iteration = 0
	c.overflow = NoOverflow()
	c.status = StatusPlaying
	return c
}

// Speed returns the playback rate.
func (c *TimeController) Speed() float64 {
	return c.speed
}

// SetSpeed changes the playback rate without moving local time.
func (c *TimeController) SetSpeed(speed float64) *TimeController {
	dt := c.timeNow - c.timeStart
	switch {
	case speed == 0:
		// timeStart is kept as if the new speed were 1.
		c.timeStart = c.timeNow - dt*c.speed
	case c.speed == 0:
		// A paused controller runs at a virtual speed of 1.
		c.timeStart = c.timeNow - dt/speed
	default:
		c.timeStart = c.timeNow - dt*c.speed/speed
	}
	c.speed = speed
	return c
}

// Time returns the local elapsed time.
func (c *TimeController) Time() float64 {
	if c.speed == 0 {
		return c.timeNow - c.timeStart
	}
	return (c.timeNow - c.timeStart) * c.speed
}

// SetTime is GoTo under a property-style name.
func (c *TimeController) SetTime(t float64) *TimeController {
	return c.GoTo(t)
}

// GoTo seeks so that the current external clock reading maps to local time t.
func (c *TimeController) GoTo(t float64) *TimeController {
	if c.speed == 0 {
		c.timeStart = c.timeNow - t
	} else {
		c.timeStart = c.timeNow - t/c.speed
	}
	return c
}

// GoToBeginning seeks to local time 0.
func (c *TimeController) GoToBeginning() *TimeController {
	return c.GoTo(0)
}

// GoToEnd seeks to the end of the last iteration.
func (c *TimeController) GoToEnd() *TimeController {
	return c.GoTo(c.Duration())
}

// Duration returns the length of all iterations, unscaled and unreversed.
// A zero-length playable has a zero total duration even when it loops forever.
func (c *TimeController) Duration() float64 {
	d := c.playable.Duration()
	if d == 0 {
		return 0
	}
	return d * c.iterations
}

// AbsoluteDuration returns the external-clock length of the timeline at the
// current speed. A paused controller never reaches the end, so the result is
// +Inf when the speed is 0. Negative speeds yield a negative length.
func (c *TimeController) AbsoluteDuration() float64 {
	if c.speed == 0 {
		return math.Inf(1)
	}
	return c.Duration() / c.speed
}

// Iterations returns the number of passes before completion.
func (c *TimeController) Iterations() float64 {
	return c.iterations
}

// SetIterations sets the number of passes before completion. math.Inf(1)
// loops forever. Values below 1 and NaN are treated as 1.
func (c *TimeController) SetIterations(n float64) *TimeController {
	if math.IsNaN(n) || n < 1 {
		n = 1
	}
	c.iterations = n
	return c
}

// Persist reports whether the timeline clamps instead of completing.
func (c *TimeController) Persist() bool {
	return c.persist
}

// SetPersist makes the timeline keep reporting time after its last iteration.
func (c *TimeController) SetPersist(persist bool) *TimeController {
	c.persist = persist
	return c
}

// Pingpong reports whether even iterations play backward.
func (c *TimeController) Pingpong() bool {
	return c.pingpong
}

// SetPingpong reverses local time on even iterations.
func (c *TimeController) SetPingpong(pingpong bool) *TimeController {
	c.pingpong = pingpong
	return c
}

// Pongping reports whether odd iterations play backward.
func (c *TimeController) Pongping() bool {
	return c.pongping
}

// SetPongping reverses local time on odd iterations.
func (c *TimeController) SetPongping(pongping bool) *TimeController {
	c.pongping = pongping
	return c
}

// OnUpdate registers fn to run once per Update, after the playable's update
// hook and before completion is resolved. A nil fn removes the callback.
func (c *TimeController) OnUpdate(fn UpdateFunc) *TimeController {
	c.onUpdate = fn
	return c
}

// Status returns the state resolved on the last Update.
func (c *TimeController) Status() Status {
	return c.status
}

// Iteration returns the iteration progress observed on the last Update. The
// integer part counts completed passes.
func (c *TimeController) Iteration() float64 {
	return c.iteration
}

// Overflow returns the signal the playable reported on the last Update.
func (c *TimeController) Overflow() Overflow {
	return c.overflow
}

// TimeNow returns the last external clock reading.
func (c *TimeController) TimeNow() float64 {
	return c.timeNow
}

// TimeStart returns the external clock reading that maps to local time 0.
func (c *TimeController) TimeStart() float64 {
	return c.timeStart
}
