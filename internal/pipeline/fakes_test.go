package pipeline

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/forgekiln/dataforge/internal/logging"
)

// noopLoader satisfies Loader without touching any real codec.
type noopLoader struct{}

func (noopLoader) LoadImage() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }
func (noopLoader) LoadCaption() (string, error)    { return "", nil }

func newItem() *WorkItem { return New(noopLoader{}) }

func testLogger() *logging.Logger { return logging.New(logging.LevelError, "test") }

// acceptTask always accepts; useful for linear happy-path tests.
type acceptTask struct {
	id       string
	attempts int32
}

func (t *acceptTask) ID() string                                          { return t.id }
func (t *acceptTask) Name() string                                        { return t.id }
func (t *acceptTask) Kind() Kind                                          { return KindCPU }
func (t *acceptTask) DesiredPoolSize() (int, bool)                        { return 0, false }
func (t *acceptTask) MaxAttempts() int                                    { return 1 }
func (t *acceptTask) MaxIPM() (int, bool)                                 { return 0, false }
func (t *acceptTask) Priority() int                                       { return 0 }
func (t *acceptTask) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (t *acceptTask) Initialize() error                                   { return nil }
func (t *acceptTask) Process(*WorkItem) (bool, error) {
	atomic.AddInt32(&t.attempts, 1)
	return true, nil
}

// rejectOddTask rejects items at odd call indices (0-based), accepts even.
type rejectOddTask struct {
	id      string
	counter int64
}

func (t *rejectOddTask) ID() string                                          { return t.id }
func (t *rejectOddTask) Name() string                                        { return t.id }
func (t *rejectOddTask) Kind() Kind                                          { return KindCPU }
func (t *rejectOddTask) DesiredPoolSize() (int, bool)                        { return 0, false }
func (t *rejectOddTask) MaxAttempts() int                                    { return 1 }
func (t *rejectOddTask) MaxIPM() (int, bool)                                 { return 0, false }
func (t *rejectOddTask) Priority() int                                       { return 0 }
func (t *rejectOddTask) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (t *rejectOddTask) Initialize() error                                   { return nil }
func (t *rejectOddTask) Process(*WorkItem) (bool, error) {
	idx := atomic.AddInt64(&t.counter, 1) - 1
	return idx%2 == 0, nil
}

// rejectAllTask rejects every item.
type rejectAllTask struct{ id string }

func (t *rejectAllTask) ID() string                                          { return t.id }
func (t *rejectAllTask) Name() string                                        { return t.id }
func (t *rejectAllTask) Kind() Kind                                          { return KindCPU }
func (t *rejectAllTask) DesiredPoolSize() (int, bool)                        { return 0, false }
func (t *rejectAllTask) MaxAttempts() int                                    { return 1 }
func (t *rejectAllTask) MaxIPM() (int, bool)                                 { return 0, false }
func (t *rejectAllTask) Priority() int                                       { return 0 }
func (t *rejectAllTask) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (t *rejectAllTask) Initialize() error                                   { return nil }
func (t *rejectAllTask) Process(*WorkItem) (bool, error) {
	return false, nil
}

// flakyTask raises on the first failBefore attempts for every item, then
// accepts.
type flakyTask struct {
	id         string
	failBefore int
	mu         sync.Mutex
	perItem    map[*WorkItem]int
}

func newFlakyTask(id string, failBefore int) *flakyTask {
	return &flakyTask{id: id, failBefore: failBefore, perItem: map[*WorkItem]int{}}
}

func (t *flakyTask) ID() string                                          { return t.id }
func (t *flakyTask) Name() string                                        { return t.id }
func (t *flakyTask) Kind() Kind                                          { return KindCPU }
func (t *flakyTask) DesiredPoolSize() (int, bool)                        { return 0, false }
func (t *flakyTask) MaxAttempts() int                                    { return t.failBefore + 1 }
func (t *flakyTask) MaxIPM() (int, bool)                                 { return 0, false }
func (t *flakyTask) Priority() int                                       { return 0 }
func (t *flakyTask) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (t *flakyTask) Initialize() error                                   { return nil }
func (t *flakyTask) Process(item *WorkItem) (bool, error) {
	t.mu.Lock()
	n := t.perItem[item]
	t.perItem[item] = n + 1
	t.mu.Unlock()
	if n < t.failBefore {
		return false, errTransient
	}
	return true, nil
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errTransient = sentinelErr("transient fault")

// collectSink appends every saved item's pointer to a slice, and can be
// made to fail on demand.
type collectSink struct {
	id    string
	mu    sync.Mutex
	saved []*WorkItem
	fail  bool
}

func (s *collectSink) ID() string                                          { return s.id }
func (s *collectSink) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (s *collectSink) Initialize() error                                   { return nil }
func (s *collectSink) Save(item *WorkItem) error {
	if s.fail {
		return errTransient
	}
	s.mu.Lock()
	s.saved = append(s.saved, item)
	s.mu.Unlock()
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
