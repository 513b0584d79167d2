// Package registry is an explicit, compile-time table of constructors
// keyed by id, with no reflection and no package scanning. A concrete
// Task/Source/Sink implementation registers itself from an init() function
// in whatever package defines it; pipeline assembly looks ids up here and
// surfaces anything missing as a pipeline.ConfigError.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/forgekiln/dataforge/internal/pipeline"
)

type (
	TaskCtor   func() pipeline.Task
	SourceCtor func() pipeline.Source
	SinkCtor   func() pipeline.Sink
)

var (
	mu      sync.RWMutex
	tasks   = map[string]TaskCtor{}
	sources = map[string]SourceCtor{}
	sinks   = map[string]SinkCtor{}
)

// RegisterTask adds a Task constructor under id. It panics on a duplicate
// id: that is a programming error (two packages claiming the same id),
// distinct from the ConfigError raised when a *config* references an id
// nothing registered.
func RegisterTask(id string, ctor TaskCtor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := tasks[id]; exists {
		panic(fmt.Sprintf("registry: task %q already registered", id))
	}
	tasks[id] = ctor
}

// RegisterSource adds a Source constructor under id.
func RegisterSource(id string, ctor SourceCtor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := sources[id]; exists {
		panic(fmt.Sprintf("registry: source %q already registered", id))
	}
	sources[id] = ctor
}

// RegisterSink adds a Sink constructor under id.
func RegisterSink(id string, ctor SinkCtor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := sinks[id]; exists {
		panic(fmt.Sprintf("registry: sink %q already registered", id))
	}
	sinks[id] = ctor
}

// Task looks up and instantiates the Task registered under id.
func Task(id string) (pipeline.Task, bool) {
	mu.RLock()
	ctor, ok := tasks[id]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Source looks up and instantiates the Source registered under id.
func Source(id string) (pipeline.Source, bool) {
	mu.RLock()
	ctor, ok := sources[id]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Sink looks up and instantiates the Sink registered under id.
func Sink(id string) (pipeline.Sink, bool) {
	mu.RLock()
	ctor, ok := sinks[id]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// TaskIDs returns every registered task id, sorted, for diagnostics (e.g.
// `dataforge report`'s "unknown task" error messages).
func TaskIDs() []string { return sortedKeys(tasks) }

// SourceIDs returns every registered source id, sorted.
func SourceIDs() []string { return sortedKeys(sources) }

// SinkIDs returns every registered sink id, sorted.
func SinkIDs() []string { return sortedKeys(sinks) }

func sortedKeys[V any](m map[string]V) []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
