package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/myorg/tempo/internal/database"
	"github.com/myorg/tempo/internal/timeline"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded traces",
	Long:  "Show traces written with --trace or stored in PostgreSQL with --store.",
}

var traceCfg struct {
	Run   string
	Tail  int
	Limit int
}

var traceShowCmd = &cobra.Command{
	Use:   "show [file.csv]",
	Short: "Show a recorded trace",
	Long: `Summarize a trace and print its last ticks.

Examples:
  tempo trace show trace.csv
  tempo trace show trace.csv --tail 0
  tempo trace show --run 5f0c3a2e-8d1b-4c7a-9e6f-0a1b2c3d4e5f
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTraceShow,
}

var traceRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs stored in PostgreSQL",
	Args:  cobra.NoArgs,
	RunE:  runTraceRuns,
}

func init() {
	traceCmd.AddCommand(traceShowCmd)
	traceCmd.AddCommand(traceRunsCmd)

	traceShowCmd.Flags().StringVar(&traceCfg.Run, "run", "", "Load the trace of a stored run")
	traceShowCmd.Flags().IntVar(&traceCfg.Tail, "tail", 10, "Number of trailing ticks to print (0 for none, -1 for all)")
	traceRunsCmd.Flags().IntVar(&traceCfg.Limit, "limit", 20, "Maximum number of runs")
}

// openTraceStore connects to the configured database.
func openTraceStore(ctx context.Context) (*database.TraceStore, error) {
	return database.Open(ctx, &appCfg.Database, nil)
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	var (
		entries []timeline.TraceEntry
		runID   uuid.UUID
		err     error
	)

	switch {
	case traceCfg.Run != "":
		if runID, err = uuid.Parse(traceCfg.Run); err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		ctx, cancel := signalContext()
		defer cancel()

		store, err := openTraceStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s, %gs x %g @ %gx, started %s\n\n",
			run.ID, run.Profile, run.Duration, run.Iterations, run.Speed,
			run.StartedAt.Format("2006-01-02 15:04:05"))
		if entries, err = store.LoadEntries(ctx, runID); err != nil {
			return err
		}
	case len(args) == 1:
		if entries, err = timeline.ReadCSV(args[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("a trace file or --run is required")
	}

	summary := timeline.Summarize(entries)
	summary.RunID = runID

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, summary.Format())

	tail := entries
	if traceCfg.Tail >= 0 && traceCfg.Tail < len(entries) {
		tail = entries[len(entries)-traceCfg.Tail:]
	}
	if len(tail) > 0 {
		fmt.Fprintln(out)
		printEntries(out, tail)
	}
	return nil
}

func printEntries(out io.Writer, entries []timeline.TraceEntry) {
	fmt.Fprintf(out, "%6s %10s %10s %8s %9s %7s %-10s %s\n",
		"SEQ", "CLOCK", "LOCAL", "DT", "ITERATION", "SPEED", "STATUS", "OVERFLOW")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, e := range entries {
		fmt.Fprintf(out, "%6d %10.3f %10.3f %8.3f %9.3f %7.2f %-10s %s\n",
			e.Seq, e.Clock, e.Local, e.Dt, e.Iteration, e.Speed, e.Status, e.Overflow)
	}
}

func runTraceRuns(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := openTraceStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, traceCfg.Limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-12s %-19s %s\n", "RUN", "PROFILE", "STARTED", "TIMELINE")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-12s %-19s %gs x %g @ %gx\n",
			r.ID, r.Profile, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Duration, r.Iterations, r.Speed)
	}
	return nil
}
