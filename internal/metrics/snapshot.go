package metrics

import (
	"encoding/json"
	"time"
)

// Snapshot represents a point-in-time view of collected metrics.
type Snapshot struct {
	StartTime        time.Time                 `json:"start_time"`
	Duration         time.Duration             `json:"duration"`
	TotalTicks       int64                     `json:"total_ticks"`
	TotalCompletions int64                     `json:"total_completions"`
	TickRate         float64                   `json:"tick_rate"`
	Timelines        map[string]*TimelineStats `json:"timelines"`
}

// TimelineStats holds metrics for a single timeline.
type TimelineStats struct {
	Ticks         int64     `json:"ticks"`
	Completions   int64     `json:"completions"`
	BackwardTicks int64     `json:"backward_ticks"`
	FrozenTicks   int64     `json:"frozen_ticks"`
	Interval      DistStats `json:"interval"`
	Step          DistStats `json:"step"`
}

// DistStats holds a distribution of magnitudes, in seconds of external
// clock (Interval) or local time (Step).
type DistStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"std_dev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P99    time.Duration `json:"p99"`
}

// ToJSON serializes the snapshot to JSON.
func (s *Snapshot) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// ToJSONIndent serializes the snapshot to indented JSON.
func (s *Snapshot) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// CompletionRate returns completions per tick as a percentage.
func (s *Snapshot) CompletionRate() float64 {
	if s.TotalTicks == 0 {
		return 0
	}
	return float64(s.TotalCompletions) / float64(s.TotalTicks) * 100
}

// MarshalJSON customizes JSON output for DistStats.
func (d DistStats) MarshalJSON() ([]byte, error) {
	type distJSON struct {
		Min    string `json:"min"`
		Max    string `json:"max"`
		Mean   string `json:"mean"`
		StdDev string `json:"std_dev"`
		P50    string `json:"p50"`
		P90    string `json:"p90"`
		P99    string `json:"p99"`
	}

	return json.Marshal(distJSON{
		Min:    d.Min.String(),
		Max:    d.Max.String(),
		Mean:   d.Mean.String(),
		StdDev: d.StdDev.String(),
		P50:    d.P50.String(),
		P90:    d.P90.String(),
		P99:    d.P99.String(),
	})
}

// UnmarshalJSON parses the output of MarshalJSON.
func (d *DistStats) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := map[string]*time.Duration{
		"min": &d.Min, "max": &d.Max, "mean": &d.Mean, "std_dev": &d.StdDev,
		"p50": &d.P50, "p90": &d.P90, "p99": &d.P99,
	}
	for key, dst := range fields {
		v, ok := raw[key]
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = parsed
	}
	return nil
}

// MarshalJSON customizes JSON output for Snapshot.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type snapshotJSON struct {
		StartTime        string                    `json:"start_time"`
		Duration         string                    `json:"duration"`
		TotalTicks       int64                     `json:"total_ticks"`
		TotalCompletions int64                     `json:"total_completions"`
		TickRate         float64                   `json:"tick_rate"`
		Timelines        map[string]*TimelineStats `json:"timelines"`
	}

	return json.Marshal(snapshotJSON{
		StartTime:        s.StartTime.Format(time.RFC3339),
		Duration:         s.Duration.String(),
		TotalTicks:       s.TotalTicks,
		TotalCompletions: s.TotalCompletions,
		TickRate:         s.TickRate,
		Timelines:        s.Timelines,
	})
}

// UnmarshalJSON parses the output of MarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		StartTime        time.Time                 `json:"start_time"`
		Duration         string                    `json:"duration"`
		TotalTicks       int64                     `json:"total_ticks"`
		TotalCompletions int64                     `json:"total_completions"`
		TickRate         float64                   `json:"tick_rate"`
		Timelines        map[string]*TimelineStats `json:"timelines"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := time.ParseDuration(raw.Duration)
	if err != nil {
		return err
	}
	*s = Snapshot{
		StartTime:        raw.StartTime,
		Duration:         d,
		TotalTicks:       raw.TotalTicks,
		TotalCompletions: raw.TotalCompletions,
		TickRate:         raw.TickRate,
		Timelines:        raw.Timelines,
	}
	return nil
}
