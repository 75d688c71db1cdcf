package timeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
)

// Summary contains aggregated statistics for a trace.
type Summary struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Wall      time.Duration `json:"wall"`

	Ticks     int     `json:"ticks"`
	ClockSpan float64 `json:"clock_span"`

	MinLocal   float64 `json:"min_local"`
	MaxLocal   float64 `json:"max_local"`
	FinalLocal float64 `json:"final_local"`

	// Loops counts iteration boundaries crossed between consecutive ticks.
	Loops            int `json:"loops"`
	DirectionChanges int `json:"direction_changes"`
	PersistingTicks  int `json:"persisting_ticks"`
	Completions      int `json:"completions"`

	FinalStatus controller.Status `json:"final_status"`
}

type summaryAlias Summary

// MarshalJSON writes the local-time fields as strings; a seek to an infinite
// local time leaves +Inf in them.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		summaryAlias
		ClockSpan  string `json:"clock_span"`
		MinLocal   string `json:"min_local"`
		MaxLocal   string `json:"max_local"`
		FinalLocal string `json:"final_local"`
	}{
		summaryAlias: summaryAlias(s),
		ClockSpan:    formatFloat(s.ClockSpan),
		MinLocal:     formatFloat(s.MinLocal),
		MaxLocal:     formatFloat(s.MaxLocal),
		FinalLocal:   formatFloat(s.FinalLocal),
	})
}

// UnmarshalJSON parses the output of MarshalJSON.
func (s *Summary) UnmarshalJSON(data []byte) error {
	raw := struct {
		*summaryAlias
		ClockSpan  string `json:"clock_span"`
		MinLocal   string `json:"min_local"`
		MaxLocal   string `json:"max_local"`
		FinalLocal string `json:"final_local"`
	}{summaryAlias: (*summaryAlias)(s)}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := []struct {
		name string
		text string
		dst  *float64
	}{
		{"clock_span", raw.ClockSpan, &s.ClockSpan},
		{"min_local", raw.MinLocal, &s.MinLocal},
		{"max_local", raw.MaxLocal, &s.MaxLocal},
		{"final_local", raw.FinalLocal, &s.FinalLocal},
	}
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		v, err := strconv.ParseFloat(f.text, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return nil
}

// GetSummary calculates summary statistics for the timeline.
func (t *Timeline) GetSummary() *Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summarize(t.Entries)
	s.RunID = t.RunID
	s.StartTime = t.StartTime
	s.EndTime = t.EndTime
	if !t.StartTime.IsZero() {
		s.Wall = t.EndTime.Sub(t.StartTime)
	}
	return s
}

// Summarize computes the tick statistics of entries in order.
func Summarize(entries []TraceEntry) *Summary {
	s := &Summary{Ticks: len(entries)}
	if len(entries) == 0 {
		return s
	}

	first, last := entries[0], entries[len(entries)-1]
	s.ClockSpan = last.Clock - first.Clock
	s.MinLocal = first.Local
	s.MaxLocal = first.Local
	s.FinalLocal = last.Local
	s.FinalStatus = last.Status

	var lastStep float64
	for i, e := range entries {
		s.MinLocal = math.Min(s.MinLocal, e.Local)
		s.MaxLocal = math.Max(s.MaxLocal, e.Local)

		switch e.Status {
		case controller.StatusPersisting:
			s.PersistingTicks++
		case controller.StatusCompleted:
			s.Completions++
		}

		if i == 0 {
			continue
		}
		prev := entries[i-1]

		if pass(prev.Iteration) != pass(e.Iteration) && finite(prev.Iteration) && finite(e.Iteration) {
			s.Loops++
		}

		step := e.Local - prev.Local
		if step == 0 {
			continue
		}
		if lastStep != 0 && (step > 0) != (lastStep > 0) {
			s.DirectionChanges++
		}
		lastStep = step
	}
	return s
}

func pass(iteration float64) float64 {
	return math.Floor(iteration)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Format returns a multi-line, human-readable rendering of the summary.
func (s *Summary) Format() string {
	if s.Ticks == 0 {
		return "No ticks recorded"
	}

	lines := []string{
		formatLine("Run", s.RunID.String()),
		formatLine("Wall time", s.Wall.Round(time.Millisecond).String()),
		formatLine("Ticks", fmt.Sprintf("%d", s.Ticks)),
		formatLine("Clock span", fmt.Sprintf("%.3fs", s.ClockSpan)),
		"",
		formatLine("Local (min/max)", fmt.Sprintf("%.3f / %.3f", s.MinLocal, s.MaxLocal)),
		formatLine("Final local", fmt.Sprintf("%.3f", s.FinalLocal)),
		formatLine("Loops", fmt.Sprintf("%d", s.Loops)),
		formatLine("Direction changes", fmt.Sprintf("%d", s.DirectionChanges)),
		"",
		formatLine("Persisting ticks", fmt.Sprintf("%d", s.PersistingTicks)),
		formatLine("Completions", fmt.Sprintf("%d", s.Completions)),
		formatLine("Final status", s.FinalStatus.String()),
	}
	return strings.Join(lines, "\n")
}

func formatLine(label, value string) string {
	return label + ": " + value
}
