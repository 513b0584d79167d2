package driver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forgekiln/dataforge/internal/config"
	"github.com/forgekiln/dataforge/internal/logging"
	"github.com/forgekiln/dataforge/internal/pipeline"
)

// quiescencePoll is how often Run checks whether every stage has gone idle.
const quiescencePoll = 250 * time.Millisecond

// errInterrupted is returned by Run after a clean shutdown triggered by
// context cancellation (an OS interrupt signal, or a caller-supplied
// deadline) rather than natural quiescence.
var errInterrupted = fmt.Errorf("dataforge: run interrupted")

// IsInterrupted reports whether err is the sentinel Run returns when the
// pipeline shut down because its context was cancelled, as opposed to a
// ConfigError/InitError or natural completion.
func IsInterrupted(err error) bool { return err == errInterrupted }

// Driver runs one pipeline end to end: resolving and initializing its
// components, feeding every Source item through the Scheduler, polling for
// quiescence or interruption, and producing a Report.
type Driver struct {
	cfg      *config.Config
	logger   *logging.Logger
	lockPath string
	observe  func(*pipeline.Scheduler)
}

// Option configures optional Driver behavior.
type Option func(*Driver)

// WithObserver registers fn to be called once, synchronously, right after
// the Scheduler is built and before any item is fed into it. The `run
// --tui` command uses this to hand the live Scheduler to the dashboard
// without widening Run's return value for every other caller.
func WithObserver(fn func(*pipeline.Scheduler)) Option {
	return func(d *Driver) { d.observe = fn }
}

// New returns a Driver for cfg. lockPath names the advisory lock file
// guarding against two concurrent runs racing the same output; pass "" to
// skip locking (tests, or callers that already serialize runs themselves).
func New(cfg *config.Config, logger *logging.Logger, lockPath string, opts ...Option) *Driver {
	d := &Driver{cfg: cfg, logger: logger, lockPath: lockPath}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run builds the pipeline from d.cfg, feeds every resolved source's items
// into it, and blocks until the pipeline quiesces or ctx is cancelled.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	if d.lockPath != "" {
		lock := flock.New(d.lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, pipeline.NewInitError("lock", err)
		}
		if !locked {
			return nil, pipeline.ConfigErrorf("another dataforge run holds the lock at %s", d.lockPath)
		}
		defer lock.Unlock()
	}

	asm, err := Build(d.cfg, d.logger)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	runLogger := d.logger.Named("run." + runID[:8])

	sched := pipeline.Build(asm.Tasks, asm.Sinks, pipeline.WorkerConfig{
		CPUWorkers: d.cfg.Workers.CPUWorkers,
		GPUWorkers: d.cfg.Workers.GPUWorkers,
		IOWorkers:  d.cfg.Workers.IOWorkers,
	}, runLogger)

	if d.observe != nil {
		d.observe(sched)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	started := time.Now()
	var submitted atomic.Int64

	feedDone := make(chan error, 1)
	go func() {
		feedDone <- d.feed(ctx, asm.Sources, sched, &submitted)
	}()

	ticker := time.NewTicker(quiescencePoll)
	defer ticker.Stop()

	feeding := true
	interrupted := false
	for !sched.IsShutdown() {
		select {
		case <-ctx.Done():
			interrupted = true
			sched.Shutdown()
		case err := <-feedDone:
			feeding = false
			if err != nil && ctx.Err() == nil {
				runLogger.Errorf("source feed failed: %v", err)
			}
		case <-ticker.C:
			if !feeding && sched.IsIdle() {
				sched.Shutdown()
			}
		}
	}

	sched.Wait()

	report := buildReport(runID, submitted.Load(), time.Since(started), sched)
	if interrupted {
		return report, errInterrupted
	}
	return report, nil
}

// feed drains every source's channel into the pipeline's first Stage,
// counting items as they're submitted. It checks ctx between items so an
// interrupt stops new submissions promptly; a Submit that blocks on a full
// queue still unblocks on shutdown (Stage.Submit selects on the Scheduler's
// Done channel), so this never hangs even if every downstream consumer has
// already exited.
func (d *Driver) feed(ctx context.Context, sources []pipeline.Source, sched *pipeline.Scheduler, submitted *atomic.Int64) error {
	first := sched.FirstStage()
	if first == nil {
		return pipeline.ConfigErrorf("pipeline has no stages")
	}
	for _, src := range sources {
		items, err := src.Next(ctx)
		if err != nil {
			return fmt.Errorf("source %q: %w", src.ID(), err)
		}
		for item := range items {
			select {
			case <-ctx.Done():
				item.Close()
				return ctx.Err()
			default:
			}
			if !first.Submit(item) {
				item.Close()
				return nil
			}
			submitted.Add(1)
		}
	}
	return nil
}
