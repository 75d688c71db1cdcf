package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func entryAt(seq int64, clock, local, iteration float64, status controller.Status) TraceEntry {
	return TraceEntry{
		Seq:       seq,
		Wall:      epoch.Add(time.Duration(clock * float64(time.Second))),
		Clock:     clock,
		Local:     local,
		Dt:        0.1,
		Iteration: iteration,
		Speed:     1,
		Status:    status,
		Overflow:  controller.NoOverflow(),
	}
}

func TestNewTimeline(t *testing.T) {
	tl := NewTimeline(uuid.Nil)

	if tl.RunID == uuid.Nil {
		t.Error("expected a generated run ID")
	}
	if tl.Len() != 0 {
		t.Errorf("expected empty timeline, got %d entries", tl.Len())
	}

	id := uuid.New()
	if got := NewTimeline(id).RunID; got != id {
		t.Errorf("RunID = %v, want %v", got, id)
	}
}

func TestTimeline_AddEntry(t *testing.T) {
	tl := NewTimeline(uuid.Nil)

	tl.AddEntry(entryAt(1, 2, 2, 0.2, controller.StatusPlaying))
	tl.AddEntry(entryAt(0, 1, 1, 0.1, controller.StatusPlaying))

	if tl.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", tl.Len())
	}
	if !tl.StartTime.Equal(epoch.Add(time.Second)) {
		t.Errorf("StartTime = %v", tl.StartTime)
	}
	if tl.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", tl.Duration())
	}

	last, ok := tl.Last()
	if !ok || last.Seq != 0 {
		t.Errorf("Last() = (%+v, %v), want insertion order", last, ok)
	}
	if _, ok := tl.GetEntry(5); ok {
		t.Error("GetEntry(5) on 2 entries should fail")
	}
}

func TestTimeline_GetLastNAndClear(t *testing.T) {
	tl := NewTimeline(uuid.Nil)
	for i := 0; i < 5; i++ {
		tl.AddEntry(entryAt(int64(i), float64(i), float64(i), 0, controller.StatusPlaying))
	}

	last := tl.GetLastN(2)
	if len(last) != 2 || last[0].Seq != 3 || last[1].Seq != 4 {
		t.Errorf("GetLastN(2) = %+v", last)
	}
	if n := len(tl.GetLastN(10)); n != 5 {
		t.Errorf("GetLastN(10) returned %d entries", n)
	}

	id := tl.RunID
	tl.Clear()
	if tl.Len() != 0 || tl.Duration() != 0 || tl.RunID != id {
		t.Error("Clear must drop entries but keep the run ID")
	}
}

func TestSummarize(t *testing.T) {
	entries := []TraceEntry{
		entryAt(0, 0, 0, 0, controller.StatusPlaying),
		entryAt(1, 0.5, 5, 0.5, controller.StatusPlaying),
		entryAt(2, 1.2, 2, 1.2, controller.StatusPlaying),   // second pass, reversed
		entryAt(3, 1.6, 0.5, 1.6, controller.StatusPlaying), // still reversed
		entryAt(4, 2.3, 3, 2.3, controller.StatusPlaying),   // forward again
		entryAt(5, 3.1, 10, 3.1, controller.StatusPersisting),
		entryAt(6, 3.5, 10, 3.5, controller.StatusPersisting),
		entryAt(7, 4, 10, math.Inf(1), controller.StatusCompleted),
	}

	s := Summarize(entries)

	if s.Ticks != 8 {
		t.Errorf("Ticks = %d, want 8", s.Ticks)
	}
	if s.ClockSpan != 4 {
		t.Errorf("ClockSpan = %v, want 4", s.ClockSpan)
	}
	if s.MinLocal != 0 || s.MaxLocal != 10 || s.FinalLocal != 10 {
		t.Errorf("local range = %v..%v final %v", s.MinLocal, s.MaxLocal, s.FinalLocal)
	}
	if s.Loops != 3 {
		t.Errorf("Loops = %d, want 3", s.Loops)
	}
	if s.DirectionChanges != 2 {
		t.Errorf("DirectionChanges = %d, want 2", s.DirectionChanges)
	}
	if s.PersistingTicks != 2 || s.Completions != 1 {
		t.Errorf("PersistingTicks = %d, Completions = %d", s.PersistingTicks, s.Completions)
	}
	if s.FinalStatus != controller.StatusCompleted {
		t.Errorf("FinalStatus = %v", s.FinalStatus)
	}
}

func TestSummary_JSONInfiniteLocal(t *testing.T) {
	s := Summarize([]TraceEntry{
		entryAt(0, 0, 0, 0, controller.StatusPlaying),
		entryAt(1, 1.5, math.Inf(1), math.Inf(1), controller.StatusCompleted),
	})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"max_local":"+Inf"`) {
		t.Errorf("expected max_local as a string, got %s", data)
	}

	var got Summary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !math.IsInf(got.MaxLocal, 1) || !math.IsInf(got.FinalLocal, 1) {
		t.Errorf("local range = %v..%v final %v", got.MinLocal, got.MaxLocal, got.FinalLocal)
	}
	if got.MinLocal != 0 || got.ClockSpan != 1.5 || got.Ticks != 2 || got.Completions != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.FinalStatus != controller.StatusCompleted {
		t.Errorf("FinalStatus = %v", got.FinalStatus)
	}

	if err := json.Unmarshal([]byte(`{"min_local":"low"}`), &got); err == nil {
		t.Error("expected error for a malformed min_local")
	}
}

func TestGetSummary(t *testing.T) {
	tl := NewTimeline(uuid.Nil)
	if got := tl.GetSummary().Format(); got != "No ticks recorded" {
		t.Errorf("empty Format() = %q", got)
	}

	tl.AddEntry(entryAt(0, 0, 0, 0, controller.StatusPlaying))
	tl.AddEntry(entryAt(1, 2, 2, 0.2, controller.StatusPlaying))

	s := tl.GetSummary()
	if s.RunID != tl.RunID || s.Wall != 2*time.Second {
		t.Errorf("unexpected summary %+v", s)
	}
	out := s.Format()
	for _, want := range []string{"Ticks: 2", "Clock span: 2.000s", "Final status: playing"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")

	w, err := CreateCSV(path)
	if err != nil {
		t.Fatalf("CreateCSV failed: %v", err)
	}

	in := []TraceEntry{
		entryAt(0, 0, 0, 0, controller.StatusPlaying),
		entryAt(1, 0.016, 0.032, 0.0032, controller.StatusPlaying),
		entryAt(2, 12, 10, math.Inf(1), controller.StatusCompleted),
	}
	in[2].Overflow = controller.OverflowOf(2)
	in[2].Speed = -0.5

	if err := w.WriteEntry(in[0]); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	if err := w.WriteAll(in[1:]); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if w.Written() != 3 {
		t.Errorf("Written() = %d, want 3", w.Written())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	out, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("read %d entries, want %d", len(out), len(in))
	}
	for i := range in {
		if !out[i].Wall.Equal(in[i].Wall) {
			t.Errorf("entry %d wall = %v, want %v", i, out[i].Wall, in[i].Wall)
		}
		out[i].Wall = in[i].Wall
		if out[i] != in[i] {
			t.Errorf("entry %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParseCSV_Errors(t *testing.T) {
	header := strings.Join(defaultHeaders, ",") + "\n"
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"short row", "1,2\n", "wrong number of fields"},
		{"bad seq", "x,2024-03-01T12:00:00Z,0,0,0,0,1,playing,none\n", "invalid seq"},
		{"bad local", "1,2024-03-01T12:00:00Z,0,abc,0,0,1,playing,none\n", "invalid local"},
		{"bad status", "1,2024-03-01T12:00:00Z,0,0,0,0,1,paused,none\n", "invalid status"},
		{"bad overflow", "1,2024-03-01T12:00:00Z,0,0,0,0,1,playing,lots\n", "invalid overflow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(header + tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseCSV() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	entries, err := ParseCSV(strings.NewReader(header))
	if err != nil || entries != nil {
		t.Errorf("header-only ParseCSV() = (%v, %v)", entries, err)
	}
}

func TestReadCSV_Missing(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadCSV(missing) error = %v", err)
	}
}

type recordingSink struct {
	runID   uuid.UUID
	batches [][]TraceEntry
	err     error
}

func (s *recordingSink) WriteEntries(_ context.Context, runID uuid.UUID, entries []TraceEntry) error {
	s.runID = runID
	s.batches = append(s.batches, entries)
	return s.err
}

func TestStreamingWriter_Batches(t *testing.T) {
	ctx := context.Background()
	tl := NewTimeline(uuid.Nil)
	sink := &recordingSink{}
	sw := NewStreamingWriter(tl, 2, sink)

	for i := 0; i < 5; i++ {
		if err := sw.Record(ctx, entryAt(int64(i), float64(i), float64(i), 0, controller.StatusPlaying)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if len(sink.batches) != 2 {
		t.Fatalf("expected 2 full batches before close, got %d", len(sink.batches))
	}

	written, err := sw.Close(ctx)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if written != 5 || len(sink.batches) != 3 || len(sink.batches[2]) != 1 {
		t.Errorf("written = %d, batches = %d", written, len(sink.batches))
	}
	if sink.runID != tl.RunID {
		t.Errorf("sink saw run %v, want %v", sink.runID, tl.RunID)
	}
	if sink.batches[0][1].Seq != 1 {
		t.Error("earlier batches must not be overwritten")
	}
	if tl.Len() != 5 {
		t.Errorf("timeline has %d entries, want 5", tl.Len())
	}
}

func TestStreamingWriter_SinkErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	good := &recordingSink{}
	bad := &recordingSink{err: boom}
	sw := NewStreamingWriter(NewTimeline(uuid.Nil), 0, good, bad)

	if err := sw.Record(ctx, entryAt(0, 0, 0, 0, controller.StatusPlaying)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := sw.Flush(ctx); !errors.Is(err, boom) {
		t.Errorf("Flush() error = %v, want boom", err)
	}
	if len(good.batches) != 1 {
		t.Error("a failing sink must not starve the others")
	}
	if sw.Written() != 0 {
		t.Errorf("Written() = %d, want 0 while a sink holds undelivered entries", sw.Written())
	}

	bad.err = nil
	if err := sw.Record(ctx, entryAt(1, 1, 1, 0, controller.StatusPlaying)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	written, err := sw.Close(ctx)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if written != 2 {
		t.Errorf("written = %d, want 2", written)
	}
	if len(good.batches) != 2 || len(good.batches[1]) != 1 {
		t.Errorf("healthy sink saw batches %v, want the second entry only once", good.batches)
	}
	if n := len(bad.batches); n != 2 || len(bad.batches[1]) != 2 || bad.batches[1][0].Seq != 0 {
		t.Errorf("failed sink batches = %v, want the rejected entry retried", bad.batches)
	}
}

func TestStreamingWriter_NoSinks(t *testing.T) {
	sw := NewStreamingWriter(NewTimeline(uuid.Nil), 1)
	if err := sw.Record(context.Background(), entryAt(0, 0, 0, 0, controller.StatusPlaying)); err != nil {
		t.Fatal(err)
	}
	if sw.Written() != 0 || sw.Timeline().Len() != 1 {
		t.Errorf("Written() = %d, Len() = %d", sw.Written(), sw.Timeline().Len())
	}
}

func TestCSVWriter_AsSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.csv")
	w, err := CreateCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	sw := NewStreamingWriter(NewTimeline(uuid.Nil), 10, w)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sw.Record(ctx, entryAt(int64(i), float64(i), float64(i), 0, controller.StatusPlaying))
	}
	if _, err := sw.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadCSV(path)
	if err != nil || len(entries) != 3 {
		t.Errorf("ReadCSV() = %d entries, err %v", len(entries), err)
	}
}
