package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/myorg/tempo/internal/clock"
	"github.com/myorg/tempo/internal/config"
	"github.com/myorg/tempo/internal/driver"
)

// timelineFlags are the flags shared by run and replay. Only flags the user
// set override the configuration.
var timelineFlags struct {
	Profile    string
	Duration   float64
	Iterations float64
	Speed      float64
	Persist    bool
	Pingpong   bool
	Pongping   bool
	StartAt    float64
	Events     string

	Output string
	Trace  string
	Format string
	Store  bool
}

var runFlags struct {
	Clock        string
	TimeScale    float64
	TickInterval time.Duration
	MaxRunTime   time.Duration
	Metrics      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a timeline from a real or simulated clock",
	Long: `Drive a timeline from a clock until it completes, the run time limit
passes, or the process is interrupted.

Clock modes:
  real       - wall time
  simulated  - wall time scaled by --time-scale
  manual     - ticks at every tick interval up to --max-run-time, as fast as possible

Examples:
  tempo run --profile loop --duration 2 --iterations 3
  tempo run --profile infinite --clock simulated --time-scale 10 --max-run-time 1m
  tempo run --profile pingpong --events events.yaml --trace trace.csv --output report.json
  tempo run --profile infinite --metrics :9090 --max-run-time 5m`,
	RunE: runRun,
}

func addTimelineFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&timelineFlags.Profile, "profile", "p", "", "Profile name or YAML file")
	fs.Float64VarP(&timelineFlags.Duration, "duration", "d", 0, "Length of one iteration in seconds")
	fs.Float64VarP(&timelineFlags.Iterations, "iterations", "n", 0, "Number of iterations (use Inf to loop forever)")
	fs.Float64VarP(&timelineFlags.Speed, "speed", "s", 1, "Playback speed (negative plays backward, 0 pauses)")
	fs.BoolVar(&timelineFlags.Persist, "persist", false, "Clamp at the end instead of completing")
	fs.BoolVar(&timelineFlags.Pingpong, "pingpong", false, "Reverse even iterations")
	fs.BoolVar(&timelineFlags.Pongping, "pongping", false, "Reverse odd iterations")
	fs.Float64Var(&timelineFlags.StartAt, "start-at", 0, "Initial local time in seconds")
	fs.StringVarP(&timelineFlags.Events, "events", "e", "", "Control event script (YAML)")

	fs.StringVarP(&timelineFlags.Output, "output", "o", "", "Write JSON report to file")
	fs.StringVar(&timelineFlags.Trace, "trace", "", "Write per-tick trace CSV to file")
	fs.StringVar(&timelineFlags.Format, "format", "", "Console output format: console or json")
	fs.BoolVar(&timelineFlags.Store, "store", false, "Persist the trace to PostgreSQL")
}

func init() {
	addTimelineFlags(runCmd.Flags())

	f := runCmd.Flags()
	f.StringVar(&runFlags.Clock, "clock", "", "Clock mode: real, simulated or manual")
	f.Float64Var(&runFlags.TimeScale, "time-scale", 0, "Clock seconds per wall second (simulated clock)")
	f.DurationVar(&runFlags.TickInterval, "tick", 0, "Tick interval in clock time")
	f.DurationVar(&runFlags.MaxRunTime, "max-run-time", 0, "Stop after this much clock time (0 = config default)")
	f.StringVar(&runFlags.Metrics, "metrics", "", "Serve Prometheus metrics on this address")
}

// applyTimelineFlags copies the flags set on cmd into cfg.
func applyTimelineFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	t := &cfg.Timeline
	if changed("profile") {
		t.Profile = timelineFlags.Profile
	}
	if changed("duration") {
		t.Duration = timelineFlags.Duration
	}
	if changed("iterations") {
		t.Iterations = timelineFlags.Iterations
	}
	if changed("speed") {
		speed := timelineFlags.Speed
		t.Speed = &speed
	}
	if changed("persist") {
		persist := timelineFlags.Persist
		t.Persist = &persist
	}
	if changed("pingpong") {
		pingpong := timelineFlags.Pingpong
		t.Pingpong = &pingpong
	}
	if changed("pongping") {
		pongping := timelineFlags.Pongping
		t.Pongping = &pongping
	}
	if changed("start-at") {
		t.StartAt = timelineFlags.StartAt
	}
	if changed("events") {
		t.Events = timelineFlags.Events
	}
	if changed("output") {
		cfg.Output.Report = timelineFlags.Output
	}
	if changed("trace") {
		cfg.Output.Trace = timelineFlags.Trace
	}
	if changed("format") {
		cfg.Output.Format = timelineFlags.Format
	}
	if changed("store") {
		cfg.Database.Enabled = timelineFlags.Store
	}
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("clock") {
		cfg.Driver.Clock = runFlags.Clock
	}
	if changed("time-scale") {
		cfg.Driver.TimeScale = runFlags.TimeScale
	}
	if changed("tick") {
		cfg.Driver.TickInterval = config.Duration(runFlags.TickInterval)
	}
	if changed("max-run-time") {
		cfg.Driver.MaxRunTime = config.Duration(runFlags.MaxRunTime)
	}
	if changed("metrics") {
		cfg.Metrics.Listen = runFlags.Metrics
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	applyTimelineFlags(cmd, cfg)
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mode, err := clock.ParseMode(cfg.Driver.Clock)
	if err != nil {
		return err
	}
	if mode == clock.ModeManual && cfg.Driver.MaxRunTime <= 0 {
		return fmt.Errorf("manual clock requires a max run time")
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	clk := clock.New(mode, start, cfg.Driver.TimeScale)
	defer clk.Stop()

	s, err := newSession(ctx, cfg, clk)
	if err != nil {
		return err
	}
	defer s.close()
	s.serveMetrics(ctx)

	slog.Info("starting run",
		slog.String("run", s.runID.String()),
		slog.String("timeline", s.profile.String()),
		slog.String("clock", string(mode)))

	var res *driver.Result
	if mode == clock.ModeManual {
		res, err = s.runner.Replay(ctx, manualReadings(cfg.Driver.TickInterval.Std(), cfg.Driver.MaxRunTime.Std()))
	} else {
		res, err = s.runner.Run(ctx)
	}
	return s.finish(cmd.OutOrStdout(), s.runInfo("run", start, clk), res, err)
}

// manualReadings steps a manual clock from 0 to limit at every tick.
func manualReadings(tick, limit time.Duration) []float64 {
	n := int(limit/tick) + 1
	readings := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		readings = append(readings, (time.Duration(i) * tick).Seconds())
	}
	return readings
}
