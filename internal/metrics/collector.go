package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// Histogram range: 1 microsecond to 1 hour
	minValueUs = 1
	maxValueUs = 3_600_000_000
	sigFigs    = 3
)

// Tick is what the collectors observe for one controller update.
type Tick struct {
	// Dt is the external-clock delta since the previous tick, in seconds.
	Dt float64
	// LocalStep is the change of local time since the previous tick.
	LocalStep float64
	Local     float64
	Speed     float64
	Iteration float64
	Completed bool
}

// timelineMetrics holds metrics for a single timeline.
type timelineMetrics struct {
	mu            sync.Mutex
	intervals     *hdrhistogram.Histogram
	steps         *hdrhistogram.Histogram
	ticks         atomic.Int64
	completions   atomic.Int64
	backwardTicks atomic.Int64
	frozenTicks   atomic.Int64
}

func newTimelineMetrics() *timelineMetrics {
	return &timelineMetrics{
		intervals: hdrhistogram.New(minValueUs, maxValueUs, sigFigs),
		steps:     hdrhistogram.New(minValueUs, maxValueUs, sigFigs),
	}
}

// Collector aggregates tick statistics for multiple timelines.
type Collector struct {
	mu        sync.RWMutex
	timelines map[string]*timelineMetrics
	startTime time.Time
}

// NewCollector creates a new metrics Collector.
func NewCollector() *Collector {
	return &Collector{
		timelines: make(map[string]*timelineMetrics),
		startTime: time.Now(),
	}
}

// getOrCreate returns metrics for a timeline, creating them if needed.
func (c *Collector) getOrCreate(name string) *timelineMetrics {
	c.mu.RLock()
	tm, exists := c.timelines[name]
	c.mu.RUnlock()

	if exists {
		return tm
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if tm, exists = c.timelines[name]; exists {
		return tm
	}

	tm = newTimelineMetrics()
	c.timelines[name] = tm
	return tm
}

// toMicros converts seconds to a histogram value. Magnitudes are recorded;
// the sign is tracked separately.
func toMicros(seconds float64) int64 {
	us := math.Abs(seconds) * 1e6
	switch {
	case math.IsNaN(us) || us < minValueUs:
		return minValueUs
	case us > maxValueUs:
		return maxValueUs
	}
	return int64(us)
}

// Record records one tick of the named timeline.
func (c *Collector) Record(name string, tick Tick) {
	tm := c.getOrCreate(name)

	tm.mu.Lock()
	tm.intervals.RecordValue(toMicros(tick.Dt))
	tm.steps.RecordValue(toMicros(tick.LocalStep))
	tm.mu.Unlock()

	tm.ticks.Add(1)
	if tick.Completed {
		tm.completions.Add(1)
	}
	if tick.Dt < 0 {
		tm.backwardTicks.Add(1)
	}
	if tick.LocalStep == 0 {
		tm.frozenTicks.Add(1)
	}
}

// GetSnapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) GetSnapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := &Snapshot{
		StartTime: c.startTime,
		Duration:  time.Since(c.startTime),
		Timelines: make(map[string]*TimelineStats),
	}

	for name, tm := range c.timelines {
		tm.mu.Lock()
		intervals := hdrhistogram.Import(tm.intervals.Export())
		steps := hdrhistogram.Import(tm.steps.Export())
		tm.mu.Unlock()

		stats := &TimelineStats{
			Ticks:         tm.ticks.Load(),
			Completions:   tm.completions.Load(),
			BackwardTicks: tm.backwardTicks.Load(),
			FrozenTicks:   tm.frozenTicks.Load(),
			Interval:      distribution(intervals),
			Step:          distribution(steps),
		}
		snap.TotalTicks += stats.Ticks
		snap.TotalCompletions += stats.Completions
		snap.Timelines[name] = stats
	}

	if secs := snap.Duration.Seconds(); secs > 0 {
		snap.TickRate = float64(snap.TotalTicks) / secs
	}
	return snap
}

func distribution(h *hdrhistogram.Histogram) DistStats {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return DistStats{
		Min:    us(h.Min()),
		Max:    us(h.Max()),
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(h.StdDev() * float64(time.Microsecond)),
		P50:    us(h.ValueAtQuantile(50)),
		P90:    us(h.ValueAtQuantile(90)),
		P99:    us(h.ValueAtQuantile(99)),
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timelines = make(map[string]*timelineMetrics)
	c.startTime = time.Now()
}
