// Package cmd is the dataforge command-line interface: a cobra command
// tree with fatal paths printed to stderr before a non-zero os.Exit.
// Config loading and logging setup live here as CLI concerns, not in the
// pipeline core in internal/pipeline.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgekiln/dataforge/internal/driver"
	"github.com/forgekiln/dataforge/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "dataforge",
	Short: "dataforge runs a staged image/caption preprocessing pipeline",
	Long: `dataforge drives image/caption pairs from configured sources through an
ordered chain of tasks and out to configured sinks, using a multi-stage
worker pool scheduler with work-stealing, per-stage rate limiting, and
retry semantics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. A ConfigError or InitError prints to stderr and
// exits 1; any other error also exits 1. `run` exits 130 itself on a clean
// interrupt shutdown, matching the conventional 128+SIGINT shell code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if pipeline.IsConfigError(err) || pipeline.IsInitError(err) {
		return 1
	}
	if driver.IsInterrupted(err) {
		return 130
	}
	return 1
}
