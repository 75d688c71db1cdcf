package report

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/driver"
	"github.com/myorg/tempo/internal/events"
	"github.com/myorg/tempo/internal/metrics"
	"github.com/myorg/tempo/internal/playable"
	"github.com/myorg/tempo/internal/profile"
	"github.com/myorg/tempo/internal/timeline"
)

var testRunID = uuid.MustParse("5f0c3a2e-8d1b-4c7a-9e6f-0a1b2c3d4e5f")

func createTestSnapshot() *metrics.Snapshot {
	collector := metrics.NewCollector()
	for i := 0; i < 100; i++ {
		collector.Record("intro", metrics.Tick{Dt: 0.016, LocalStep: 0.016, Local: float64(i) * 0.016, Speed: 1})
	}
	return collector.GetSnapshot()
}

func createTestReport(t *testing.T, p *profile.Profile) *Report {
	t.Helper()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	info := RunInfo{
		StartTime:    start,
		EndTime:      start.Add(2 * time.Second),
		Duration:     2 * time.Second,
		Mode:         "replay",
		ClockMode:    "manual",
		TimeScale:    1,
		TickInterval: 16 * time.Millisecond,
		Events:       2,
	}
	res := &driver.Result{
		RunID:      testRunID,
		Ticks:      3,
		StopReason: driver.StopCompleted,
		Completed:  true,
		Completion: playable.Completion{Overflow: 2, Dt: 7, Direction: playable.DirectionForward},
		Status:     controller.StatusCompleted,
		Iteration:  1.2,
		FinalLocal: 12,
		Elapsed:    12,
	}
	summary := timeline.Summarize([]timeline.TraceEntry{
		{Seq: 0, Clock: 0, Local: 0, Iteration: 0, Speed: 1, Status: controller.StatusPlaying},
		{Seq: 1, Clock: 5, Local: 5, Iteration: 0.5, Speed: 1, Status: controller.StatusPlaying},
		{Seq: 2, Clock: 12, Local: 12, Iteration: 1.2, Speed: 1, Status: controller.StatusCompleted},
	})
	return GenerateReport(info, p, res, summary, createTestSnapshot())
}

func TestGenerateReport(t *testing.T) {
	p, ok := profile.Get("once")
	if !ok {
		t.Fatal("preset once missing")
	}
	p.Duration = 10

	report := createTestReport(t, p)

	if report.Version != Version {
		t.Errorf("Version = %q, want %q", report.Version, Version)
	}
	if report.RunInfo.RunID != testRunID {
		t.Errorf("RunID = %s, want %s", report.RunInfo.RunID, testRunID)
	}
	if report.RunInfo.Profile != "once" {
		t.Errorf("Profile = %q, want once", report.RunInfo.Profile)
	}
	if report.Settings.Duration != 10 || report.Settings.Iterations != 1 {
		t.Errorf("Settings = %+v", report.Settings)
	}
	if report.Outcome.Completion == nil {
		t.Fatal("expected completion to be carried over")
	}
	if report.Outcome.Completion.Overflow != 2 || report.Outcome.Completion.Dt != 7 {
		t.Errorf("Completion = %+v", *report.Outcome.Completion)
	}
	if report.Summary.Completions != 1 {
		t.Errorf("Summary.Completions = %d, want 1", report.Summary.Completions)
	}
}

func TestGenerateReport_NonTrackCompletion(t *testing.T) {
	res := &driver.Result{StopReason: driver.StopCompleted, Completed: true, Completion: "done"}
	report := GenerateReport(RunInfo{Mode: "run", Profile: "custom"}, nil, res, nil, nil)

	if report.Outcome.Completion != nil {
		t.Errorf("expected no completion record, got %+v", report.Outcome.Completion)
	}
	if report.RunInfo.Profile != "custom" {
		t.Errorf("Profile = %q, want custom", report.RunInfo.Profile)
	}
}

func TestReport_JSONRoundTrip(t *testing.T) {
	p, _ := profile.Get("infinite")
	report := createTestReport(t, p)
	report.Outcome.Iteration = math.Inf(1)

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(data), `"iterations": "+Inf"`) {
		t.Errorf("expected infinite iterations as a string, got:\n%s", data)
	}
	if !strings.Contains(string(data), `"status": "completed"`) {
		t.Errorf("expected textual status, got:\n%s", data)
	}

	parsed, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !math.IsInf(parsed.Settings.Iterations, 1) {
		t.Errorf("Settings.Iterations = %v, want +Inf", parsed.Settings.Iterations)
	}
	if !math.IsInf(parsed.Outcome.Iteration, 1) {
		t.Errorf("Outcome.Iteration = %v, want +Inf", parsed.Outcome.Iteration)
	}
	if parsed.RunInfo.RunID != testRunID {
		t.Errorf("RunID = %s, want %s", parsed.RunInfo.RunID, testRunID)
	}
	if !parsed.RunInfo.StartTime.Equal(report.RunInfo.StartTime) {
		t.Errorf("StartTime = %v, want %v", parsed.RunInfo.StartTime, report.RunInfo.StartTime)
	}
	if parsed.RunInfo.TickInterval != 16*time.Millisecond {
		t.Errorf("TickInterval = %v, want 16ms", parsed.RunInfo.TickInterval)
	}
	if parsed.Outcome.Status != controller.StatusCompleted {
		t.Errorf("Status = %v, want completed", parsed.Outcome.Status)
	}
	if parsed.Outcome.Completion == nil || parsed.Outcome.Completion.Direction != playable.DirectionForward {
		t.Errorf("Completion = %+v", parsed.Outcome.Completion)
	}
	if parsed.Metrics == nil || parsed.Metrics.TotalTicks != 100 {
		t.Errorf("Metrics = %+v", parsed.Metrics)
	}
	if parsed.Summary == nil || parsed.Summary.Ticks != 3 {
		t.Errorf("Summary = %+v", parsed.Summary)
	}
}

func TestReport_JSONAfterSeekToInfiniteEnd(t *testing.T) {
	p, _ := profile.Get("infinite")
	track := playable.NewTrack("loop", p.Duration)
	ctrl := p.Apply(controller.New(track))
	sched := events.NewScheduler([]*events.Event{
		{At: time.Second, Action: events.ActionGoToEnd},
	})

	r := driver.NewRunner(ctrl, driver.Options{
		Name:   "loop",
		Events: sched,
		Logger: slog.New(slog.DiscardHandler),
	})
	res, err := r.Replay(context.Background(), []float64{0, 0.5, 1, 1.5, 2})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !res.Completed || !math.IsInf(res.FinalLocal, 1) {
		t.Fatalf("expected completion at an infinite local time, got %+v", res)
	}

	report := GenerateReport(RunInfo{Mode: "replay"}, p, res, r.Timeline().GetSummary(), nil)
	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(data), `"final_local": "+Inf"`) {
		t.Errorf("expected final_local as a string, got:\n%s", data)
	}

	parsed, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !math.IsInf(parsed.Outcome.FinalLocal, 1) {
		t.Errorf("Outcome.FinalLocal = %v, want +Inf", parsed.Outcome.FinalLocal)
	}
	if parsed.Outcome.Completion == nil || !math.IsInf(parsed.Outcome.Completion.Overflow, 1) {
		t.Errorf("Completion = %+v, want +Inf overflow", parsed.Outcome.Completion)
	}
	if parsed.Summary == nil || !math.IsInf(parsed.Summary.MaxLocal, 1) {
		t.Errorf("Summary = %+v, want +Inf max local", parsed.Summary)
	}
	if !math.IsInf(parsed.Settings.Iterations, 1) {
		t.Errorf("Settings.Iterations = %v, want +Inf", parsed.Settings.Iterations)
	}
}

func TestReport_JSONStartAt(t *testing.T) {
	p, _ := profile.Get("reverse")
	report := createTestReport(t, p)

	data, err := report.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	parsed, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if parsed.Settings.StartAt != 2 || parsed.Settings.Speed != -1 {
		t.Errorf("Settings = %+v", parsed.Settings)
	}
	if parsed.Outcome.FinalLocal != 12 {
		t.Errorf("FinalLocal = %v, want 12", parsed.Outcome.FinalLocal)
	}
}

func TestReport_WriteAndLoadFile(t *testing.T) {
	p, _ := profile.Get("pingpong")
	report := createTestReport(t, p)

	path := filepath.Join(t.TempDir(), "report.json")
	if err := report.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file not written: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if !loaded.Settings.Pingpong {
		t.Error("expected pingpong setting to survive the round trip")
	}
	if loaded.Outcome.Ticks != 3 {
		t.Errorf("Ticks = %d, want 3", loaded.Outcome.Ticks)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"bad start time", `{"run_info":{"start_time":"yesterday"}}`},
		{"bad iterations", `{"run_info":{"start_time":"2024-01-01T00:00:00Z","end_time":"2024-01-01T00:00:00Z","duration":"0s"},"settings":{"iterations":"many"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJSON([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReport_String(t *testing.T) {
	p, _ := profile.Get("once")
	report := createTestReport(t, p)

	got := report.String()
	want := "Report: replay once, 3 ticks, stopped: completed, status: completed, local 12.000"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
