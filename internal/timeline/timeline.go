package timeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
)

// TraceEntry is the state of a controller after one tick. Iteration is
// infinite for zero-length playables.
type TraceEntry struct {
	Seq       int64
	Wall      time.Time
	Clock     float64
	Local     float64
	Dt        float64
	Iteration float64
	Speed     float64
	Status    controller.Status
	Overflow  controller.Overflow
}

// Completed reports whether the tick fired the completion hook.
func (e TraceEntry) Completed() bool {
	return e.Status == controller.StatusCompleted
}

// Timeline stores the ticks of one run in order.
type Timeline struct {
	RunID     uuid.UUID
	Entries   []TraceEntry
	StartTime time.Time
	EndTime   time.Time
	mu        sync.RWMutex
}

// NewTimeline creates an empty timeline. A nil runID is replaced with a
// fresh random one.
func NewTimeline(runID uuid.UUID) *Timeline {
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	return &Timeline{
		RunID:   runID,
		Entries: make([]TraceEntry, 0, 256),
	}
}

// AddEntry appends an entry and widens the wall-clock range.
func (t *Timeline) AddEntry(entry TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.StartTime.IsZero() || entry.Wall.Before(t.StartTime) {
		t.StartTime = entry.Wall
	}
	if entry.Wall.After(t.EndTime) {
		t.EndTime = entry.Wall
	}

	t.Entries = append(t.Entries, entry)
}

// GetEntries returns a copy of all entries.
func (t *Timeline) GetEntries() []TraceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]TraceEntry, len(t.Entries))
	copy(result, t.Entries)
	return result
}

// GetEntry returns the entry at the specified index.
func (t *Timeline) GetEntry(index int) (TraceEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.Entries) {
		return TraceEntry{}, false
	}
	return t.Entries[index], true
}

// Last returns the most recent entry.
func (t *Timeline) Last() (TraceEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.Entries) == 0 {
		return TraceEntry{}, false
	}
	return t.Entries[len(t.Entries)-1], true
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.Entries)
}

// Duration returns the wall-clock time covered by the timeline.
func (t *Timeline) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return 0
	}
	return t.EndTime.Sub(t.StartTime)
}

// GetLastN returns the last n entries.
func (t *Timeline) GetLastN(n int) []TraceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n > len(t.Entries) {
		n = len(t.Entries)
	}
	if n < 0 {
		n = 0
	}
	result := make([]TraceEntry, n)
	copy(result, t.Entries[len(t.Entries)-n:])
	return result
}

// Clear removes all entries but keeps the run ID.
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Entries = t.Entries[:0]
	t.StartTime = time.Time{}
	t.EndTime = time.Time{}
}
