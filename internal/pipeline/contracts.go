package pipeline

import "context"

// Task is a pure stage descriptor: identity, resource kind, desired pool
// size, retry count, optional throughput cap, and the process function
// itself. Concrete tasks (resize, hash, text filters, captioners) are
// external collaborators; the core only ever calls through this contract.
//
// Process must be safe for concurrent invocation on distinct WorkItems: a
// Stage runs one Task shared read-only across all of its workers once
// Initialize has returned. Process must never retain a reference to the
// WorkItem after it returns. A non-nil error is treated as a transient
// fault, counted toward MaxAttempts, and never propagates out of the
// worker that called it.
type Task interface {
	ID() string
	Name() string
	Kind() Kind

	// DesiredPoolSize returns an explicit worker count for this Task's
	// Stage. ok is false when the Task wants the kind default instead.
	DesiredPoolSize() (size int, ok bool)

	// MaxAttempts is the number of times Process may be invoked for a
	// single WorkItem before the item is rejected. Must be >= 1.
	MaxAttempts() int

	// MaxIPM returns a soft items-per-minute ceiling. ok is false when the
	// Task is unlimited.
	MaxIPM() (ipm int, ok bool)

	Priority() int

	// LoadPreferences validates cfg (and any shared env values) and stores
	// whatever configuration Process will need. It returns false if the
	// Task is unusable with this configuration. Must be side-effect free
	// beyond storing the parsed configuration.
	LoadPreferences(cfg map[string]any, env map[string]any) bool

	// Initialize performs one-time setup (resource acquisition, model
	// loading) on the pipeline's construction goroutine, before any worker
	// starts calling Process.
	Initialize() error

	Process(item *WorkItem) (accept bool, err error)
}

// Source yields WorkItems into the first Stage. Next may produce its
// sequence incrementally; every item sent on the returned channel is
// transferred by ownership to the caller. The channel must be closed when
// the source is exhausted.
type Source interface {
	ID() string
	LoadPreferences(cfg map[string]any, env map[string]any) bool
	Initialize() error
	Next(ctx context.Context) (<-chan *WorkItem, error)
}

// Sink persists a WorkItem. Save errors are logged by the synthesized sink
// stage, the other sinks still run, and the item counts as rejected on the
// sink stage; they never abort the pipeline.
type Sink interface {
	ID() string
	LoadPreferences(cfg map[string]any, env map[string]any) bool
	Initialize() error
	Save(item *WorkItem) error
}
