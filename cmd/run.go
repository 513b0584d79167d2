package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/forgekiln/dataforge/internal/config"
	"github.com/forgekiln/dataforge/internal/driver"
	"github.com/forgekiln/dataforge/internal/logging"
	"github.com/forgekiln/dataforge/internal/pipeline"
	"github.com/forgekiln/dataforge/internal/runlog"
	"github.com/forgekiln/dataforge/internal/tui"
)

var (
	runConfigPath string
	runTUI        bool
	runVerbose    bool
	runHistoryDB  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and run the pipeline described by a config file",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to the pipeline YAML config (required)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "attach a live terminal dashboard of per-stage counters")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "force debug-level logging regardless of config log_level")
	runCmd.Flags().StringVar(&runHistoryDB, "history-db", "", "optional SQLite path to record this run's summary (see `report --history`)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if runVerbose {
		level = logging.LevelDebug
	}
	logger := logging.New(level, "dataforge")

	lockPath := filepath.Join(filepath.Dir(runConfigPath), ".dataforge.lock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		report *driver.Report
		runErr error
	)

	if runTUI {
		sawScheduler := make(chan *pipeline.Scheduler, 1)
		done := make(chan struct{})

		d := driver.New(cfg, logger, lockPath, driver.WithObserver(func(sched *pipeline.Scheduler) {
			sawScheduler <- sched
		}))

		go func() {
			report, runErr = d.Run(ctx)
			close(done)
		}()

		var sched *pipeline.Scheduler
		select {
		case sched = <-sawScheduler:
		case <-done:
			// Run failed before the pipeline was built; there is nothing to
			// dashboard.
			return runErr
		}
		model := tui.New(sched, cancel, done)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		<-done
	} else {
		d := driver.New(cfg, logger, lockPath)
		report, runErr = d.Run(ctx)
	}

	if runErr != nil && !driver.IsInterrupted(runErr) {
		return runErr
	}

	fmt.Fprint(os.Stdout, report.String())

	if runHistoryDB != "" {
		store, err := runlog.Open(runHistoryDB)
		if err != nil {
			logger.Warnf("could not open history db %s: %v", runHistoryDB, err)
		} else {
			if err := store.RecordRun(report, time.Now().Add(-report.Duration)); err != nil {
				logger.Warnf("could not record run history: %v", err)
			}
			store.Close()
		}
	}

	if driver.IsInterrupted(runErr) {
		os.Exit(130)
	}
	return nil
}
