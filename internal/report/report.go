package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/driver"
	"github.com/myorg/tempo/internal/metrics"
	"github.com/myorg/tempo/internal/playable"
	"github.com/myorg/tempo/internal/profile"
	"github.com/myorg/tempo/internal/timeline"
)

// Version is the report format version.
const Version = "1.0"

// Report contains the complete record of one timeline run.
type Report struct {
	Version  string
	RunInfo  RunInfo
	Settings Settings
	Outcome  Outcome
	Summary  *timeline.Summary
	Metrics  *metrics.Snapshot
}

// RunInfo contains execution metadata.
type RunInfo struct {
	RunID        uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Mode         string
	Profile      string
	ClockMode    string
	TimeScale    float64
	TickInterval time.Duration
	Events       int
}

// Settings are the controller settings the run started with. Iterations
// may be +Inf.
type Settings struct {
	Duration   float64
	Iterations float64
	Speed      float64
	Persist    bool
	Pingpong   bool
	Pongping   bool
	StartAt    float64
}

// Outcome describes how the run ended.
type Outcome struct {
	StopReason string
	Ticks      int64
	Status     controller.Status
	Completed  bool
	Completion *playable.Completion
	Iteration  float64
	FinalLocal float64
	Elapsed    float64
	Persisted  int64
}

// SettingsFrom copies the controller settings of p.
func SettingsFrom(p *profile.Profile) Settings {
	return Settings{
		Duration:   p.Duration,
		Iterations: p.Iterations,
		Speed:      p.Speed,
		Persist:    p.Persist,
		Pingpong:   p.Pingpong,
		Pongping:   p.Pongping,
		StartAt:    p.StartAt,
	}
}

// GenerateReport assembles a report from a finished run. summary and
// snapshot may be nil.
func GenerateReport(info RunInfo, p *profile.Profile, res *driver.Result, summary *timeline.Summary, snapshot *metrics.Snapshot) *Report {
	r := &Report{
		Version: Version,
		RunInfo: info,
		Summary: summary,
		Metrics: snapshot,
	}
	if p != nil {
		r.Settings = SettingsFrom(p)
		if r.RunInfo.Profile == "" {
			r.RunInfo.Profile = p.Name
		}
	}
	if res != nil {
		r.RunInfo.RunID = res.RunID
		r.Outcome = Outcome{
			StopReason: res.StopReason,
			Ticks:      res.Ticks,
			Status:     res.Status,
			Completed:  res.Completed,
			Iteration:  res.Iteration,
			FinalLocal: res.FinalLocal,
			Elapsed:    res.Elapsed,
			Persisted:  res.Persisted,
		}
		if c, ok := res.Completion.(playable.Completion); ok {
			r.Outcome.Completion = &c
		}
	}
	return r
}

// String returns a one-line description of the report.
func (r *Report) String() string {
	return fmt.Sprintf(
		"Report: %s %s, %d ticks, stopped: %s, status: %s, local %.3f",
		r.RunInfo.Mode,
		r.RunInfo.Profile,
		r.Outcome.Ticks,
		r.Outcome.StopReason,
		r.Outcome.Status,
		r.Outcome.FinalLocal,
	)
}
