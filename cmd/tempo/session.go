package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/clock"
	"github.com/myorg/tempo/internal/config"
	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/database"
	"github.com/myorg/tempo/internal/driver"
	"github.com/myorg/tempo/internal/events"
	"github.com/myorg/tempo/internal/metrics"
	"github.com/myorg/tempo/internal/playable"
	"github.com/myorg/tempo/internal/profile"
	"github.com/myorg/tempo/internal/report"
	"github.com/myorg/tempo/internal/timeline"
)

// session wires one controller run: profile, track, events, metrics and
// trace sinks. close releases whatever was opened.
type session struct {
	cfg     *config.Config
	log     *slog.Logger
	runID   uuid.UUID
	profile *profile.Profile
	track   *playable.Track
	ctrl    *controller.TimeController
	sched   *events.Scheduler

	collector *metrics.Collector
	exporter  *metrics.Exporter
	writer    *timeline.StreamingWriter
	runner    *driver.Runner

	store   *database.TraceStore
	closers []func()
}

// resolveProfile loads the configured profile and applies the explicit
// timeline settings on top of it.
func resolveProfile(t config.TimelineConfig) (*profile.Profile, error) {
	var p *profile.Profile
	if t.Profile == "" {
		p = &profile.Profile{Name: "custom", Iterations: 1, Speed: 1}
	} else {
		var err error
		if p, err = profile.Load(t.Profile); err != nil {
			return nil, err
		}
	}
	p.Override(t)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timeline: %w", err)
	}
	return p, nil
}

func newSession(ctx context.Context, cfg *config.Config, clk clock.Clock) (*session, error) {
	p, err := resolveProfile(cfg.Timeline)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		log:       slog.Default(),
		runID:     uuid.New(),
		profile:   p,
		track:     playable.NewTrack(p.Name, p.Duration),
		collector: metrics.NewCollector(),
	}
	s.ctrl = p.Apply(controller.New(s.track))

	if cfg.Timeline.Events != "" {
		evs, err := events.ParseFile(cfg.Timeline.Events)
		if err != nil {
			return nil, err
		}
		s.sched = events.NewScheduler(evs)
	}

	if cfg.Metrics.Listen != "" {
		s.exporter = metrics.NewExporter(cfg.Metrics.Namespace)
	}

	var sinks []timeline.Sink
	if cfg.Output.Trace != "" {
		w, err := timeline.CreateCSV(cfg.Output.Trace)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := w.Close(); err != nil {
				s.log.Warn("closing trace file", slog.Any("error", err))
			}
		})
		sinks = append(sinks, w)
	}
	if cfg.Database.Enabled {
		store, err := s.openStore(ctx)
		if err != nil {
			s.close()
			return nil, err
		}
		sinks = append(sinks, store)
	}

	s.writer = timeline.NewStreamingWriter(timeline.NewTimeline(s.runID), 0, sinks...)
	s.runner = driver.NewRunner(s.ctrl, driver.Options{
		Name:         p.Name,
		Clock:        clk,
		TickInterval: cfg.Driver.TickInterval.Std(),
		MaxRunTime:   cfg.Driver.MaxRunTime.Std(),
		Events:       s.sched,
		Collector:    s.collector,
		Exporter:     s.exporter,
		Writer:       s.writer,
		Logger:       s.log,
	})
	return s, nil
}

func (s *session) openStore(ctx context.Context) (*database.TraceStore, error) {
	store, err := database.Open(ctx, &s.cfg.Database, s.log)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.closers = append(s.closers, store.Close)

	err = store.InsertRun(ctx, database.RunRecord{
		ID:         s.runID,
		Profile:    s.profile.Name,
		Duration:   s.profile.Duration,
		Iterations: s.profile.Iterations,
		Speed:      s.profile.Speed,
		Persist:    s.profile.Persist,
		Pingpong:   s.profile.Pingpong,
		Pongping:   s.profile.Pongping,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// serveMetrics starts the Prometheus endpoint when one is configured. The
// server stops when ctx is cancelled.
func (s *session) serveMetrics(ctx context.Context) {
	if s.exporter == nil {
		return
	}
	go func() {
		if err := s.exporter.Serve(ctx, s.cfg.Metrics.Listen, s.log); err != nil {
			s.log.Error("metrics endpoint failed", slog.Any("error", err))
		}
	}()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// finish builds the report for res, writes it where configured and prints
// it to out.
func (s *session) finish(out io.Writer, info report.RunInfo, res *driver.Result, runErr error) error {
	if res == nil {
		return runErr
	}
	info.Events = 0
	if s.sched != nil {
		info.Events = s.sched.Applied()
	}

	rep := report.GenerateReport(info, s.profile, res,
		s.writer.Timeline().GetSummary(), s.collector.GetSnapshot())

	var errs []error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		errs = append(errs, runErr)
	}
	if path := s.cfg.Output.Report; path != "" {
		if err := rep.WriteToFile(path); err != nil {
			errs = append(errs, err)
		}
	}

	switch s.cfg.Output.Format {
	case "json":
		data, err := rep.ToJSON()
		if err != nil {
			errs = append(errs, err)
			break
		}
		fmt.Fprintln(out, string(data))
	default:
		report.NewConsoleFormatter().
			WithWriter(out).
			WithReportPath(s.cfg.Output.Report).
			PrintSummary(rep)
	}
	return errors.Join(errs...)
}

// runInfo describes a run started at start with clk (nil for replays).
func (s *session) runInfo(mode string, start time.Time, clk clock.Clock) report.RunInfo {
	info := report.RunInfo{
		RunID:     s.runID,
		StartTime: start,
		EndTime:   time.Now(),
		Mode:      mode,
		Profile:   s.profile.Name,
	}
	info.Duration = info.EndTime.Sub(start)
	if clk != nil {
		info.ClockMode = s.cfg.Driver.Clock
		info.TimeScale = clk.TimeScale()
		info.TickInterval = s.cfg.Driver.TickInterval.Std()
	}
	return info
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
