package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tempo version %s\n", Version)
		if bi, ok := debug.ReadBuildInfo(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "  go: %s\n", bi.GoVersion)
		}
	},
}
