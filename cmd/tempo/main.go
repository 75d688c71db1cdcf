package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCfg struct {
	ConfigFile string
	EnvFile    string
	LogLevel   string
	Verbose    bool
	Quiet      bool
}

var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "Time controller for playable timelines",
	Long: `tempo maps an external clock onto the local time of a playable timeline,
with speed changes, seeking, looping, pingpong and persistence.

Commands:
  Playback:
    run      Drive a timeline from a real or simulated clock
    replay   Feed an explicit list of clock readings to a timeline

  Profiles:
    profile list      List built-in profiles
    profile show      Show profile details
    profile validate  Validate a profile YAML file

  Traces:
    trace show   Show a recorded trace (CSV file or stored run)
    trace runs   List runs stored in PostgreSQL

  Configuration:
    config init      Generate example configuration file
    config show      Show effective configuration
    config validate  Validate configuration file

Examples:
  # Play a 10 second timeline twice, pingponging, at double speed
  tempo run --profile pingpong --duration 10 --iterations 2 --speed 2

  # Deterministic replay of clock readings
  tempo replay --duration 10 0 5 12

  # Apply a control script while playing
  tempo run --profile infinite --events events.yaml --max-run-time 10s`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootCfg.ConfigFile, "config", "c", "", "Config file (YAML or TOML)")
	pf.StringVar(&rootCfg.EnvFile, "env-file", ".env", "Dotenv file loaded before the config")
	pf.StringVar(&rootCfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.BoolVarP(&rootCfg.Verbose, "verbose", "v", false, "Debug logging with source locations")
	pf.BoolVarP(&rootCfg.Quiet, "quiet", "q", false, "Discard log output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
