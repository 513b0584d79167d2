package pipeline

import (
	"github.com/forgekiln/dataforge/internal/logging"
)

// sinkTask is the synthesized Task appended as the pipeline's final Stage.
// It has no downstream: Process calls Save on every
// configured sink, logs each per-sink failure and still runs the remaining
// sinks, closes the WorkItem exactly once, and accepts iff every sink
// succeeded. There is no per-sink counter: one failing sink makes the whole
// item count as rejected on the sink stage.
type sinkTask struct {
	sinks  []Sink
	logger *logging.Logger
}

// newSinkTask wraps sinks as a single IO-kind Task.
func newSinkTask(sinks []Sink, logger *logging.Logger) *sinkTask {
	return &sinkTask{sinks: sinks, logger: logger}
}

func (t *sinkTask) ID() string                   { return "dataforge:sink" }
func (t *sinkTask) Name() string                 { return "sink" }
func (t *sinkTask) Kind() Kind                   { return KindIO }
func (t *sinkTask) DesiredPoolSize() (int, bool) { return 0, false }
func (t *sinkTask) MaxAttempts() int             { return 1 }
func (t *sinkTask) MaxIPM() (int, bool)          { return 0, false }
func (t *sinkTask) Priority() int                { return 0 }

func (t *sinkTask) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (t *sinkTask) Initialize() error                                   { return nil }

// Process never returns a non-nil error: a sink failure is logged and
// turns the result into a reject, not a retryable task fault.
func (t *sinkTask) Process(item *WorkItem) (bool, error) {
	allOK := true
	for _, sink := range t.sinks {
		if err := sink.Save(item); err != nil {
			t.logger.Errorf("sink %q failed to save item: %v", sink.ID(), err)
			allOK = false
		}
	}
	_ = item.Close()
	return allOK, nil
}
