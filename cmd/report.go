package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgekiln/dataforge/internal/config"
	"github.com/forgekiln/dataforge/internal/driver"
	"github.com/forgekiln/dataforge/internal/logging"
	"github.com/forgekiln/dataforge/internal/runlog"
)

var (
	reportConfigPath string
	reportHistory    bool
	reportHistoryDB  string
	reportLimit      int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Validate a config and print the pipeline topology, or print recorded run history",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportConfigPath, "config", "", "path to the pipeline YAML config")
	reportCmd.Flags().BoolVar(&reportHistory, "history", false, "print recorded run history instead of validating a config")
	reportCmd.Flags().StringVar(&reportHistoryDB, "history-db", "", "SQLite path written by `run --history-db` (required with --history)")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "max history rows to print")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportHistory {
		return printHistory()
	}
	if reportConfigPath == "" {
		return fmt.Errorf("report: --config is required unless --history is set")
	}
	return printTopology()
}

// printTopology resolves and initializes every component cfg references,
// exactly what `run` would do before accepting input, without ever
// constructing a Scheduler or feeding an item, so a bad config surfaces as
// a ConfigError/InitError (and a non-zero exit) without side effects.
func printTopology() error {
	cfg, err := config.Load(reportConfigPath)
	if err != nil {
		return err
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel), "dataforge-report")

	asm, err := driver.Build(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("pipeline: %d source(s), %d task stage(s), %d sink(s)\n", len(asm.Sources), len(asm.Tasks), len(asm.Sinks))
	for i, task := range asm.Tasks {
		ipm := "unlimited"
		if v, ok := task.MaxIPM(); ok {
			ipm = fmt.Sprintf("%d/min", v)
		}
		size := "default"
		if v, ok := task.DesiredPoolSize(); ok {
			size = fmt.Sprintf("%d", v)
		}
		fmt.Printf("  [%d] %-20s kind=%-4s pool=%-8s attempts=%-3d max_ipm=%s\n",
			i, task.Name(), task.Kind(), size, task.MaxAttempts(), ipm)
	}
	fmt.Printf("  [%d] %-20s kind=io   pool=default (synthesized sink stage)\n", len(asm.Tasks), "sink")
	return nil
}

func printHistory() error {
	if reportHistoryDB == "" {
		return fmt.Errorf("report --history: --history-db is required")
	}
	store, err := runlog.Open(reportHistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.History(reportLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  submitted=%-6d items/sec=%-8.2f duration=%s\n",
			r.RunID[:8], r.StartedAt.Format("2006-01-02 15:04:05"), r.Submitted, r.ItemsPerSecond, r.Duration.Round(time.Millisecond))
	}
	return nil
}
