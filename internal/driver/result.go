package driver

import (
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
)

// Reasons a run stops.
const (
	StopCompleted    = "completed"
	StopDeadline     = "deadline"
	StopCancelled    = "cancelled"
	StopClockStopped = "clock stopped"
	StopExhausted    = "readings exhausted"
	StopError        = "error"
)

// replayEpoch anchors wall times of replays without a clock.
var replayEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Result summarizes a finished run.
type Result struct {
	RunID      uuid.UUID
	Ticks      int64
	StopReason string
	Completed  bool
	// Completion is what the playable's completion hook returned.
	Completion any
	Status     controller.Status
	Iteration  float64
	FinalLocal float64
	// Elapsed is the clock reading of the last tick, in seconds.
	Elapsed float64
	// Persisted counts entries every trace sink accepted.
	Persisted int64
}
