package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	c := NewRealClock()
	defer c.Stop()

	before := time.Now()
	now := c.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() returned time outside expected range")
	}
}

func TestRealClock_Ticker(t *testing.T) {
	c := NewRealClock()
	defer c.Stop()

	ticker := c.Ticker(20 * time.Millisecond)
	defer ticker.Stop()

	count := 0
	timeout := time.After(500 * time.Millisecond)

loop:
	for {
		select {
		case <-ticker.C:
			count++
			if count >= 3 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	if count < 3 {
		t.Errorf("RealClock.Ticker() only ticked %d times, expected at least 3", count)
	}
}

func TestRealClock_StopIsIdempotent(t *testing.T) {
	c := NewRealClock()
	c.Stop()
	c.Stop()

	select {
	case <-c.Done():
	default:
		t.Error("Done() not closed after Stop()")
	}
	if c.TimeScale() != 1 || c.IsSimulated() {
		t.Errorf("RealClock reports scale %v simulated %v", c.TimeScale(), c.IsSimulated())
	}
}

func TestSimulatedClock_TimeScale(t *testing.T) {
	startTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSimulatedClock(startTime, 4)
	defer c.Stop()

	if scale := c.TimeScale(); scale != 4 {
		t.Errorf("SimulatedClock.TimeScale() = %v, expected 4", scale)
	}

	// 100ms real = 400ms simulated
	simStart := c.Now()
	time.Sleep(100 * time.Millisecond)
	elapsed := c.Since(simStart)

	if elapsed < 300*time.Millisecond || elapsed > 1200*time.Millisecond {
		t.Errorf("SimulatedClock with timeScale=4: elapsed = %v, expected ~400ms", elapsed)
	}
}

func TestSimulatedClock_FractionalScale(t *testing.T) {
	c := NewSimulatedClock(time.Time{}, 0.5)
	defer c.Stop()

	if got := c.SimulatedDuration(2 * time.Second); got != time.Second {
		t.Errorf("SimulatedDuration(2s) at 0.5x = %v, expected 1s", got)
	}
	if got := c.RealDuration(time.Second); got != 2*time.Second {
		t.Errorf("RealDuration(1s) at 0.5x = %v, expected 2s", got)
	}
}

func TestSimulatedClock_InvalidTimeScale(t *testing.T) {
	for _, scale := range []float64{0, -5} {
		c := NewSimulatedClock(time.Time{}, scale)
		if c.TimeScale() != 1 {
			t.Errorf("SimulatedClock with timeScale=%v should default to 1, got %v", scale, c.TimeScale())
		}
		c.Stop()
	}
}

func TestSimulatedClock_Ticker(t *testing.T) {
	startTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSimulatedClock(startTime, 10)
	defer c.Stop()

	// 200ms simulated = 20ms real
	ticker := c.Ticker(200 * time.Millisecond)
	defer ticker.Stop()

	var last time.Time
	count := 0
	timeout := time.After(time.Second)

loop:
	for {
		select {
		case now := <-ticker.C:
			if !last.IsZero() && !now.After(last) {
				t.Errorf("ticker readings not increasing: %v then %v", last, now)
			}
			last = now
			count++
			if count >= 4 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	if count < 4 {
		t.Errorf("SimulatedClock.Ticker() only ticked %d times, expected at least 4", count)
	}
}

func TestSimulatedClock_StartTime(t *testing.T) {
	startTime := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	c := NewSimulatedClock(startTime, 1)
	defer c.Stop()

	diff := c.Now().Sub(startTime)
	if diff < 0 || diff > 50*time.Millisecond {
		t.Errorf("SimulatedClock.Now() diff from start = %v", diff)
	}
	if !c.IsSimulated() {
		t.Error("SimulatedClock.IsSimulated() = false, expected true")
	}
}

func TestManualClock_AdvanceFiresTicker(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	defer c.Stop()

	ticker := c.Ticker(100 * time.Millisecond)
	defer ticker.Stop()

	c.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case got := <-ticker.C:
		if want := start.Add(100 * time.Millisecond); !got.Equal(want) {
			t.Errorf("tick = %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not fire after 100ms")
	}

	// Skipping several intervals yields a single tick.
	c.Advance(time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Error("expected a single tick after a large jump")
	default:
	}
}

func TestManualClock_After(t *testing.T) {
	c := NewManualClock(time.Time{})
	defer c.Stop()

	ch := c.After(time.Second)
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}

	c.Advance(999 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After fired early")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}

	select {
	case <-c.After(0):
	default:
		t.Error("After(0) should fire immediately")
	}
}

func TestManualClock_StopTickerUnregisters(t *testing.T) {
	c := NewManualClock(time.Time{})
	defer c.Stop()

	ticker := c.Ticker(time.Second)
	ticker.Stop()
	ticker.Stop()

	if c.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop, want 0", c.Pending())
	}
}

func TestManualClock_SetBackwardFiresNothing(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	defer c.Stop()

	ticker := c.Ticker(time.Second)
	defer ticker.Stop()

	c.Set(start.Add(-time.Hour))
	select {
	case <-ticker.C:
		t.Error("ticker fired when the clock moved backward")
	default:
	}
	if got := c.Since(start); got != -time.Hour {
		t.Errorf("Since(start) = %v, want -1h", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"real", ModeReal, false},
		{"simulated", ModeSimulated, false},
		{"manual", ModeManual, false},
		{"", ModeReal, false},
		{"warp", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := New(ModeReal, start, 3).(*RealClock); !ok {
		t.Error("New(real) did not return *RealClock")
	}
	sim, ok := New(ModeSimulated, start, 12).(*SimulatedClock)
	if !ok || sim.TimeScale() != 12 {
		t.Error("New(simulated, 12) did not return a 12x SimulatedClock")
	}
	man, ok := New(ModeManual, start, 3).(*ManualClock)
	if !ok || !man.Now().Equal(start) {
		t.Error("New(manual) did not return a ManualClock at start")
	}
}

func TestSeconds(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := Seconds(epoch, epoch.Add(1500*time.Millisecond)); got != 1.5 {
		t.Errorf("Seconds() = %v, want 1.5", got)
	}
	if got := Seconds(epoch, epoch.Add(-2*time.Second)); got != -2 {
		t.Errorf("Seconds() = %v, want -2", got)
	}
}
