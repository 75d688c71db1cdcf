package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/metrics"
	"github.com/myorg/tempo/internal/playable"
	"github.com/myorg/tempo/internal/timeline"
)

// jsonReport is the JSON-serializable version of Report. Values that may be
// infinite are carried as strings, since JSON numbers cannot express them.
type jsonReport struct {
	Version  string            `json:"version"`
	RunInfo  jsonRunInfo       `json:"run_info"`
	Settings jsonSettings      `json:"settings"`
	Outcome  jsonOutcome       `json:"outcome"`
	Summary  *timeline.Summary `json:"summary,omitempty"`
	Metrics  *metrics.Snapshot `json:"metrics,omitempty"`
}

type jsonRunInfo struct {
	RunID        uuid.UUID `json:"run_id"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Duration     string    `json:"duration"`
	DurationSec  float64   `json:"duration_sec"`
	Mode         string    `json:"mode"`
	Profile      string    `json:"profile"`
	ClockMode    string    `json:"clock_mode,omitempty"`
	TimeScale    float64   `json:"time_scale,omitempty"`
	TickInterval string    `json:"tick_interval,omitempty"`
	Events       int       `json:"events"`
}

type jsonSettings struct {
	Duration   float64 `json:"duration"`
	Iterations string  `json:"iterations"`
	Speed      float64 `json:"speed"`
	Persist    bool    `json:"persist"`
	Pingpong   bool    `json:"pingpong"`
	Pongping   bool    `json:"pongping"`
	StartAt    string  `json:"start_at,omitempty"`
}

type jsonOutcome struct {
	StopReason string               `json:"stop_reason"`
	Ticks      int64                `json:"ticks"`
	Status     controller.Status    `json:"status"`
	Completed  bool                 `json:"completed"`
	Completion *playable.Completion `json:"completion,omitempty"`
	Iteration  string               `json:"iteration"`
	FinalLocal string               `json:"final_local"`
	Elapsed    float64              `json:"elapsed"`
	Persisted  int64                `json:"persisted"`
}

// ToJSON serializes the report to indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r.toJSONReport(), "", "  ")
}

// ToJSONCompact serializes the report to compact JSON.
func (r *Report) ToJSONCompact() ([]byte, error) {
	return json.Marshal(r.toJSONReport())
}

// WriteToFile writes the report to a file.
func (r *Report) WriteToFile(path string) error {
	data, err := r.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// ParseJSON parses a report produced by ToJSON or ToJSONCompact.
func ParseJSON(data []byte) (*Report, error) {
	var jr jsonReport
	if err := json.Unmarshal(data, &jr); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return jr.toReport()
}

// LoadFromFile reads a report written by WriteToFile.
func LoadFromFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return ParseJSON(data)
}

func (r *Report) toJSONReport() jsonReport {
	jr := jsonReport{
		Version: r.Version,
		RunInfo: jsonRunInfo{
			RunID:       r.RunInfo.RunID,
			StartTime:   r.RunInfo.StartTime.Format(time.RFC3339Nano),
			EndTime:     r.RunInfo.EndTime.Format(time.RFC3339Nano),
			Duration:    r.RunInfo.Duration.String(),
			DurationSec: r.RunInfo.Duration.Seconds(),
			Mode:        r.RunInfo.Mode,
			Profile:     r.RunInfo.Profile,
			ClockMode:   r.RunInfo.ClockMode,
			TimeScale:   r.RunInfo.TimeScale,
			Events:      r.RunInfo.Events,
		},
		Settings: jsonSettings{
			Duration:   r.Settings.Duration,
			Iterations: formatFloat(r.Settings.Iterations),
			Speed:      r.Settings.Speed,
			Persist:    r.Settings.Persist,
			Pingpong:   r.Settings.Pingpong,
			Pongping:   r.Settings.Pongping,
		},
		Outcome: jsonOutcome{
			StopReason: r.Outcome.StopReason,
			Ticks:      r.Outcome.Ticks,
			Status:     r.Outcome.Status,
			Completed:  r.Outcome.Completed,
			Completion: r.Outcome.Completion,
			Iteration:  formatFloat(r.Outcome.Iteration),
			FinalLocal: formatFloat(r.Outcome.FinalLocal),
			Elapsed:    r.Outcome.Elapsed,
			Persisted:  r.Outcome.Persisted,
		},
		Summary: r.Summary,
		Metrics: r.Metrics,
	}
	if r.Settings.StartAt != 0 {
		jr.Settings.StartAt = formatFloat(r.Settings.StartAt)
	}
	if r.RunInfo.TickInterval > 0 {
		jr.RunInfo.TickInterval = r.RunInfo.TickInterval.String()
	}
	return jr
}

func (jr jsonReport) toReport() (*Report, error) {
	start, err := time.Parse(time.RFC3339Nano, jr.RunInfo.StartTime)
	if err != nil {
		return nil, fmt.Errorf("run_info.start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, jr.RunInfo.EndTime)
	if err != nil {
		return nil, fmt.Errorf("run_info.end_time: %w", err)
	}
	duration, err := time.ParseDuration(jr.RunInfo.Duration)
	if err != nil {
		return nil, fmt.Errorf("run_info.duration: %w", err)
	}
	var tick time.Duration
	if jr.RunInfo.TickInterval != "" {
		if tick, err = time.ParseDuration(jr.RunInfo.TickInterval); err != nil {
			return nil, fmt.Errorf("run_info.tick_interval: %w", err)
		}
	}
	iterations, err := strconv.ParseFloat(jr.Settings.Iterations, 64)
	if err != nil {
		return nil, fmt.Errorf("settings.iterations: %w", err)
	}
	var startAt float64
	if jr.Settings.StartAt != "" {
		if startAt, err = strconv.ParseFloat(jr.Settings.StartAt, 64); err != nil {
			return nil, fmt.Errorf("settings.start_at: %w", err)
		}
	}
	iteration, err := strconv.ParseFloat(jr.Outcome.Iteration, 64)
	if err != nil {
		return nil, fmt.Errorf("outcome.iteration: %w", err)
	}
	finalLocal, err := strconv.ParseFloat(jr.Outcome.FinalLocal, 64)
	if err != nil {
		return nil, fmt.Errorf("outcome.final_local: %w", err)
	}

	return &Report{
		Version: jr.Version,
		RunInfo: RunInfo{
			RunID:        jr.RunInfo.RunID,
			StartTime:    start,
			EndTime:      end,
			Duration:     duration,
			Mode:         jr.RunInfo.Mode,
			Profile:      jr.RunInfo.Profile,
			ClockMode:    jr.RunInfo.ClockMode,
			TimeScale:    jr.RunInfo.TimeScale,
			TickInterval: tick,
			Events:       jr.RunInfo.Events,
		},
		Settings: Settings{
			Duration:   jr.Settings.Duration,
			Iterations: iterations,
			Speed:      jr.Settings.Speed,
			Persist:    jr.Settings.Persist,
			Pingpong:   jr.Settings.Pingpong,
			Pongping:   jr.Settings.Pongping,
			StartAt:    startAt,
		},
		Outcome: Outcome{
			StopReason: jr.Outcome.StopReason,
			Ticks:      jr.Outcome.Ticks,
			Status:     jr.Outcome.Status,
			Completed:  jr.Outcome.Completed,
			Completion: jr.Outcome.Completion,
			Iteration:  iteration,
			FinalLocal: finalLocal,
			Elapsed:    jr.Outcome.Elapsed,
			Persisted:  jr.Outcome.Persisted,
		},
		Summary: jr.Summary,
		Metrics: jr.Metrics,
	}, nil
}

// formatFloat renders v so that strconv.ParseFloat reads it back,
// infinities included.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
