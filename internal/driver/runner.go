package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/clock"
	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/events"
	"github.com/myorg/tempo/internal/metrics"
	"github.com/myorg/tempo/internal/timeline"
)

// DefaultTickInterval is roughly one frame at 60 Hz.
const DefaultTickInterval = 16 * time.Millisecond

// Options configures a Runner. Only Clock is required by Run; Replay needs
// nothing.
type Options struct {
	// Name labels the timeline in metrics and logs.
	Name string

	Clock        clock.Clock
	TickInterval time.Duration
	// MaxRunTime bounds a run in clock time. Zero means no bound.
	MaxRunTime time.Duration

	// Events due at a clock reading are applied right before the following
	// tick, while the controller still reads that clock value.
	Events    *events.Scheduler
	Collector *metrics.Collector
	Exporter  *metrics.Exporter
	Writer    *timeline.StreamingWriter

	// OnUpdate runs after the controller's per-tick callback.
	OnUpdate controller.UpdateFunc

	Logger *slog.Logger
}

// Runner drives a single TimeController. Clock readings are fed to the
// controller as seconds since the runner's epoch, so a freshly created
// controller sees its first tick at 0.
//
// A Runner is not safe for concurrent use; it owns the controller for the
// duration of Run or Replay.
type Runner struct {
	ctrl *controller.TimeController
	opts Options
	log  *slog.Logger

	seq       int64
	epoch     time.Time
	lastLocal float64
	lastEntry timeline.TraceEntry

	lastCompletion any

	// set by the controller callback during Update
	tickLocal float64
	tickDt    float64
}

// NewRunner creates a runner for ctrl. It installs its own OnUpdate
// callback on ctrl; use Options.OnUpdate to observe ticks.
func NewRunner(ctrl *controller.TimeController, opts Options) *Runner {
	if opts.Name == "" {
		opts.Name = "timeline"
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Writer == nil {
		opts.Writer = timeline.NewStreamingWriter(timeline.NewTimeline(uuid.Nil), 0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := &Runner{
		ctrl: ctrl,
		opts: opts,
		log:  log.With(slog.String("timeline", opts.Name)),
	}
	ctrl.OnUpdate(func(t, dt float64) {
		r.tickLocal = t
		r.tickDt = dt
		if opts.OnUpdate != nil {
			opts.OnUpdate(t, dt)
		}
	})
	return r
}

// Timeline returns the trace recorded so far.
func (r *Runner) Timeline() *timeline.Timeline {
	return r.opts.Writer.Timeline()
}

// Run ticks the controller from the clock until it completes, MaxRunTime
// of clock time has passed, the clock stops, or ctx is cancelled. The first
// tick happens immediately at clock reading 0.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.opts.Clock == nil {
		return nil, errors.New("driver: Run requires a clock")
	}
	clk := r.opts.Clock
	r.epoch = clk.Now()

	r.log.LogAttrs(ctx, slog.LevelInfo, "run started",
		slog.String("run", r.Timeline().RunID.String()),
		slog.Duration("tick", r.opts.TickInterval),
		slog.Float64("time_scale", clk.TimeScale()))

	ticker := clk.Ticker(r.opts.TickInterval)
	defer ticker.Stop()

	limit := r.opts.MaxRunTime.Seconds()
	reason, err := r.tickAt(ctx, 0, r.epoch, limit)
	for reason == "" && err == nil {
		select {
		case <-ctx.Done():
			reason, err = StopCancelled, ctx.Err()
		case <-clk.Done():
			reason = StopClockStopped
		case t := <-ticker.C:
			reason, err = r.tickAt(ctx, clock.Seconds(r.epoch, t), t, limit)
		}
	}
	return r.finish(ctx, reason, err)
}

// Replay feeds readings, in seconds since the epoch, to the controller in
// order and stops early on completion or cancellation. Readings need not be
// monotonic. Wall times are derived from the epoch, which is the runner's
// clock reading or the zero-based default when no clock is configured.
func (r *Runner) Replay(ctx context.Context, readings []float64) (*Result, error) {
	r.epoch = replayEpoch
	if r.opts.Clock != nil {
		r.epoch = r.opts.Clock.Now()
	}

	var (
		reason string
		err    error
	)
	for _, now := range readings {
		if ctxErr := ctx.Err(); ctxErr != nil {
			reason, err = StopCancelled, ctxErr
			break
		}
		wall := r.epoch.Add(time.Duration(now * float64(time.Second)))
		if reason, err = r.tickAt(ctx, now, wall, 0); reason != "" || err != nil {
			break
		}
	}
	if reason == "" && err == nil {
		reason = StopExhausted
	}
	return r.finish(ctx, reason, err)
}

// tickAt runs one tick and reports why the run should stop, if it should.
func (r *Runner) tickAt(ctx context.Context, now float64, wall time.Time, limit float64) (string, error) {
	if err := r.applyEvents(ctx, r.ctrl.TimeNow()); err != nil {
		return StopError, err
	}

	entry, completion, done := r.Step(now, wall)
	if err := r.record(ctx, entry); err != nil {
		return StopError, err
	}

	if done {
		r.log.LogAttrs(ctx, slog.LevelInfo, "timeline completed",
			slog.Float64("clock", now),
			slog.Any("completion", completion))
		return StopCompleted, nil
	}
	if limit > 0 && now >= limit {
		return StopDeadline, nil
	}
	return "", nil
}

func (r *Runner) applyEvents(ctx context.Context, now float64) error {
	if r.opts.Events == nil {
		return nil
	}
	elapsed := time.Duration(now * float64(time.Second))
	applied, err := r.opts.Events.ApplyDue(elapsed, r.ctrl)
	for _, ev := range applied {
		r.log.LogAttrs(ctx, slog.LevelDebug, "event applied",
			slog.String("event", ev.String()),
			slog.Float64("local", r.ctrl.Time()))
	}
	if err != nil {
		return fmt.Errorf("applying events at %gs: %w", now, err)
	}
	return nil
}

// Step performs a single controller update at clock reading now and
// returns the resulting trace entry. It does not record the entry.
func (r *Runner) Step(now float64, wall time.Time) (timeline.TraceEntry, any, bool) {
	completion, done := r.ctrl.Update(now)

	entry := timeline.TraceEntry{
		Seq:       r.seq,
		Wall:      wall,
		Clock:     now,
		Local:     r.tickLocal,
		Dt:        r.tickDt,
		Iteration: r.ctrl.Iteration(),
		Speed:     r.ctrl.Speed(),
		Status:    r.ctrl.Status(),
		Overflow:  r.ctrl.Overflow(),
	}
	r.seq++
	r.lastEntry = entry
	r.lastCompletion = completion
	return entry, completion, done
}

func (r *Runner) record(ctx context.Context, entry timeline.TraceEntry) error {
	tick := metrics.Tick{
		Dt:        entry.Dt,
		LocalStep: entry.Local - r.lastLocal,
		Local:     entry.Local,
		Speed:     entry.Speed,
		Iteration: entry.Iteration,
		Completed: entry.Completed(),
	}
	r.lastLocal = entry.Local

	if r.opts.Collector != nil {
		r.opts.Collector.Record(r.opts.Name, tick)
	}
	if r.opts.Exporter != nil {
		r.opts.Exporter.Observe(r.opts.Name, tick)
	}
	if err := r.opts.Writer.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording tick %d: %w", entry.Seq, err)
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, reason string, runErr error) (*Result, error) {
	// Flush with a fresh context so a cancelled run still persists its tail.
	flushCtx := context.WithoutCancel(ctx)
	written, flushErr := r.opts.Writer.Close(flushCtx)

	res := &Result{
		RunID:      r.Timeline().RunID,
		Ticks:      r.seq,
		StopReason: reason,
		Completed:  reason == StopCompleted,
		Status:     r.ctrl.Status(),
		Iteration:  r.ctrl.Iteration(),
		FinalLocal: r.lastEntry.Local,
		Elapsed:    r.lastEntry.Clock,
		Persisted:  written,
	}
	if res.Completed {
		res.Completion = r.lastCompletion
	}

	r.log.LogAttrs(ctx, slog.LevelInfo, "run finished",
		slog.String("reason", reason),
		slog.Int64("ticks", res.Ticks),
		slog.Float64("local", res.FinalLocal),
		slog.String("status", res.Status.String()))

	if runErr != nil {
		return res, runErr
	}
	if flushErr != nil {
		return res, fmt.Errorf("flushing trace: %w", flushErr)
	}
	return res, nil
}
