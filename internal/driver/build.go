// Package driver is the integration point between the pipeline core and
// its collaborators: it resolves task/source/sink ids out of a parsed
// configuration against the registry, initializes them in order, and runs
// the resulting pipeline end to end.
package driver

import (
	"github.com/forgekiln/dataforge/internal/config"
	"github.com/forgekiln/dataforge/internal/logging"
	"github.com/forgekiln/dataforge/internal/pipeline"
	"github.com/forgekiln/dataforge/internal/registry"
)

// Assembled holds every resolved, load-preferenced, initialized component
// ready to be wired into a Scheduler.
type Assembled struct {
	Sources []pipeline.Source
	Tasks   []pipeline.Task
	Sinks   []pipeline.Sink
}

// Build resolves cfg.Input/Tasks/Output against the registry, calls
// LoadPreferences on each resolved component, then Initialize on each in
// source -> task -> sink order. An id the registry doesn't know is a
// ConfigError unless cfg.SuppressInvalidKeys is set, in which case it is
// logged and skipped.
func Build(cfg *config.Config, logger *logging.Logger) (*Assembled, error) {
	sources, err := resolveSources(cfg, logger)
	if err != nil {
		return nil, err
	}
	tasks, err := resolveTasks(cfg, logger)
	if err != nil {
		return nil, err
	}
	sinks, err := resolveSinks(cfg, logger)
	if err != nil {
		return nil, err
	}

	for _, s := range sources {
		if err := s.Initialize(); err != nil {
			return nil, pipeline.NewInitError(s.ID(), err)
		}
	}
	for _, t := range tasks {
		if err := t.Initialize(); err != nil {
			return nil, pipeline.NewInitError(t.ID(), err)
		}
	}
	for _, sk := range sinks {
		if err := sk.Initialize(); err != nil {
			return nil, pipeline.NewInitError(sk.ID(), err)
		}
	}

	return &Assembled{Sources: sources, Tasks: tasks, Sinks: sinks}, nil
}

func resolveSources(cfg *config.Config, logger *logging.Logger) ([]pipeline.Source, error) {
	var out []pipeline.Source
	for id, values := range cfg.Input {
		src, ok := registry.Source(id)
		if !ok {
			if cfg.SuppressInvalidKeys {
				logger.Warnf("unknown source %q, skipping", id)
				continue
			}
			return nil, pipeline.ConfigErrorf("unknown source %q (known: %v)", id, registry.SourceIDs())
		}
		if !src.LoadPreferences(values, cfg.Env) {
			return nil, pipeline.ConfigErrorf("source %q rejected its configuration", id)
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, pipeline.ConfigErrorf("no sources resolved from configuration")
	}
	return out, nil
}

// resolveTasks preserves cfg.Tasks' order: that order is pipeline order. A
// task id repeated across two entries is a ConfigError, checked before the
// repeated entry is instantiated so the duplicate never reaches the registry.
func resolveTasks(cfg *config.Config, logger *logging.Logger) ([]pipeline.Task, error) {
	out := make([]pipeline.Task, 0, len(cfg.Tasks))
	seen := make(map[string]bool, len(cfg.Tasks))
	for _, entry := range cfg.Tasks {
		if seen[entry.ID] {
			return nil, pipeline.ConfigErrorf("duplicate task id %q", entry.ID)
		}
		seen[entry.ID] = true

		task, ok := registry.Task(entry.ID)
		if !ok {
			if cfg.SuppressInvalidKeys {
				logger.Warnf("unknown task %q, skipping", entry.ID)
				continue
			}
			return nil, pipeline.ConfigErrorf("unknown task %q (known: %v)", entry.ID, registry.TaskIDs())
		}
		if !task.LoadPreferences(entry.Values, cfg.Env) {
			return nil, pipeline.ConfigErrorf("task %q rejected its configuration", entry.ID)
		}
		out = append(out, task)
	}
	if len(out) == 0 {
		return nil, pipeline.ConfigErrorf("no tasks resolved from configuration")
	}
	return out, nil
}

func resolveSinks(cfg *config.Config, logger *logging.Logger) ([]pipeline.Sink, error) {
	var out []pipeline.Sink
	for id, values := range cfg.Output {
		sink, ok := registry.Sink(id)
		if !ok {
			if cfg.SuppressInvalidKeys {
				logger.Warnf("unknown sink %q, skipping", id)
				continue
			}
			return nil, pipeline.ConfigErrorf("unknown sink %q (known: %v)", id, registry.SinkIDs())
		}
		if !sink.LoadPreferences(values, cfg.Env) {
			return nil, pipeline.ConfigErrorf("sink %q rejected its configuration", id)
		}
		out = append(out, sink)
	}
	if len(out) == 0 {
		return nil, pipeline.ConfigErrorf("no sinks resolved from configuration")
	}
	return out, nil
}
