package playable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/myorg/tempo/internal/controller"
)

// Direction is the sign of the external clock delta on the completing tick.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Completion records one invocation of the completion hook.
type Completion struct {
	Overflow  float64   `json:"overflow"`
	Dt        float64   `json:"dt"`
	Direction Direction `json:"direction"`
}

// String returns a short description of the completion.
func (c Completion) String() string {
	return fmt.Sprintf("Completion{overflow=%g, dt=%g, %s}", c.Overflow, c.Dt, c.Direction)
}

// MarshalJSON writes overflow and dt as strings. A seek to an infinite local
// time completes with an infinite overflow, which JSON numbers cannot hold.
func (c Completion) MarshalJSON() ([]byte, error) {
	return json.Marshal(completionJSON{
		Overflow:  strconv.FormatFloat(c.Overflow, 'g', -1, 64),
		Dt:        strconv.FormatFloat(c.Dt, 'g', -1, 64),
		Direction: c.Direction,
	})
}

// UnmarshalJSON parses the output of MarshalJSON.
func (c *Completion) UnmarshalJSON(data []byte) error {
	var raw completionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	overflow, err := strconv.ParseFloat(raw.Overflow, 64)
	if err != nil {
		return fmt.Errorf("overflow: %w", err)
	}
	dt, err := strconv.ParseFloat(raw.Dt, 64)
	if err != nil {
		return fmt.Errorf("dt: %w", err)
	}
	*c = Completion{Overflow: overflow, Dt: dt, Direction: raw.Direction}
	return nil
}

type completionJSON struct {
	Overflow  string    `json:"overflow"`
	Dt        string    `json:"dt"`
	Direction Direction `json:"direction"`
}

// Track is a fixed-length playable. It keeps the last local time clamped to
// [0, duration] and signals an overflow whenever the controller hands it a
// time outside that range.
type Track struct {
	name        string
	duration    float64
	local       float64
	raw         float64
	overflow    controller.Overflow
	updates     int64
	completions []Completion
	mu          sync.RWMutex
}

// NewTrack creates a track of the given length. Negative lengths are treated
// as zero.
func NewTrack(name string, duration float64) *Track {
	if duration < 0 {
		duration = 0
	}
	return &Track{
		name:     name,
		duration: duration,
	}
}

// Name returns the track name.
func (t *Track) Name() string {
	return t.name
}

// Duration returns the length of one iteration.
func (t *Track) Duration() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.duration
}

// SetDuration changes the length of one iteration. The controller picks the
// new value up on its next tick.
func (t *Track) SetDuration(d float64) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	t.duration = d
	t.mu.Unlock()
}

// DoUpdate stores the local time and reports how far it left the track.
func (t *Track) DoUpdate(local float64) controller.Overflow {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.raw = local
	t.updates++

	switch {
	case t.duration == 0 && local >= 0:
		t.local = 0
		t.overflow = controller.OverflowOf(local)
	case local > t.duration:
		t.local = t.duration
		t.overflow = controller.OverflowOf(local - t.duration)
	case local < 0:
		t.local = 0
		t.overflow = controller.OverflowOf(local)
	default:
		t.local = local
		t.overflow = controller.NoOverflow()
	}
	return t.overflow
}

// Complete records the completion and returns it.
func (t *Track) Complete(overflow, dt float64) any {
	c := Completion{
		Overflow:  overflow,
		Dt:        dt,
		Direction: DirectionForward,
	}
	if dt < 0 {
		c.Direction = DirectionBackward
	}

	t.mu.Lock()
	t.completions = append(t.completions, c)
	t.mu.Unlock()

	return c
}

// Local returns the last local time, clamped to the track.
func (t *Track) Local() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.local
}

// Raw returns the last local time as handed over by the controller.
func (t *Track) Raw() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.raw
}

// Overflow returns the signal reported on the last DoUpdate.
func (t *Track) Overflow() controller.Overflow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.overflow
}

// Progress returns Local as a fraction of the track length.
func (t *Track) Progress() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.duration == 0 {
		return 1
	}
	return t.local / t.duration
}

// Updates returns the number of DoUpdate calls.
func (t *Track) Updates() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updates
}

// Completions returns a copy of all recorded completions.
func (t *Track) Completions() []Completion {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Completion, len(t.completions))
	copy(result, t.completions)
	return result
}

// Done reports whether the track completed at least once.
func (t *Track) Done() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.completions) > 0
}

// Reset clears the recorded state but keeps the duration.
func (t *Track) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.local = 0
	t.raw = 0
	t.overflow = controller.NoOverflow()
	t.updates = 0
	t.completions = nil
}
