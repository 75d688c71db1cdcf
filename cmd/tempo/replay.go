package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var replayFlags struct {
	Step  float64
	Until float64
}

var replayCmd = &cobra.Command{
	Use:   "replay [reading...]",
	Short: "Feed an explicit list of clock readings to a timeline",
	Long: `Feed clock readings, in seconds, to a timeline and report the result.

Readings are taken from the arguments in order and need not be monotonic;
a decreasing reading plays the timeline backward. Separate negative readings
from the flags with "--". With --step, readings from 0 to --until at that
interval are appended.

Examples:
  tempo replay --duration 10 0 5 12
  tempo replay --duration 10 --speed -1 -- 0 -3 -11
  tempo replay --profile pingpong --duration 1 --iterations 3 --step 0.25 --until 4
  tempo replay --profile loop --events events.yaml --step 0.1 --until 10 --trace trace.csv`,
	RunE: runReplay,
}

func init() {
	addTimelineFlags(replayCmd.Flags())

	f := replayCmd.Flags()
	f.Float64Var(&replayFlags.Step, "step", 0, "Generate readings at this interval in seconds")
	f.Float64Var(&replayFlags.Until, "until", 0, "Last generated reading in seconds")
}

// parseReadings parses the positional readings and appends the generated
// ones.
func parseReadings(args []string, step, until float64) ([]float64, error) {
	readings := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid reading %q: %w", arg, err)
		}
		readings = append(readings, v)
	}

	if step < 0 {
		return nil, fmt.Errorf("--step must be > 0")
	}
	if step > 0 {
		for i := 0; ; i++ {
			v := float64(i) * step
			if v > until {
				break
			}
			readings = append(readings, v)
		}
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("no clock readings given")
	}
	return readings, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	applyTimelineFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	readings, err := parseReadings(args, replayFlags.Step, replayFlags.Until)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	s, err := newSession(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.runner.Replay(ctx, readings)
	return s.finish(cmd.OutOrStdout(), s.runInfo("replay", start, nil), res, err)
}
