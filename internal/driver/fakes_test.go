package driver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forgekiln/dataforge/internal/logging"
	"github.com/forgekiln/dataforge/internal/pipeline"
)

func testLogger() *logging.Logger { return logging.New(logging.LevelError, "driver-test") }

var idSeq atomic.Int64

// uniqueID mints a fresh registry id per call so tests can register fakes
// without colliding with each other (the registry panics on a duplicate id
// and has no unregister).
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idSeq.Add(1))
}

type stubLoader struct{}

func (stubLoader) LoadImage() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }
func (stubLoader) LoadCaption() (string, error)    { return "", nil }

// fakeSource yields n stub WorkItems, then closes.
type fakeSource struct {
	id string
	n  int
}

func (s *fakeSource) ID() string                                          { return s.id }
func (s *fakeSource) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (s *fakeSource) Initialize() error                                   { return nil }

func (s *fakeSource) Next(ctx context.Context) (<-chan *pipeline.WorkItem, error) {
	ch := make(chan *pipeline.WorkItem)
	go func() {
		defer close(ch)
		for i := 0; i < s.n; i++ {
			select {
			case <-ctx.Done():
				return
			case ch <- pipeline.New(stubLoader{}):
			}
		}
	}()
	return ch, nil
}

// slowSource is like fakeSource but waits delay before each send, so tests
// can interrupt a run mid-feed.
type slowSource struct {
	id    string
	n     int
	delay time.Duration
}

func (s *slowSource) ID() string                                          { return s.id }
func (s *slowSource) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (s *slowSource) Initialize() error                                   { return nil }

func (s *slowSource) Next(ctx context.Context) (<-chan *pipeline.WorkItem, error) {
	ch := make(chan *pipeline.WorkItem)
	go func() {
		defer close(ch)
		for i := 0; i < s.n; i++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.delay):
			}
			select {
			case <-ctx.Done():
				return
			case ch <- pipeline.New(stubLoader{}):
			}
		}
	}()
	return ch, nil
}

// fakeTask always accepts.
type fakeTask struct {
	id string
}

func (t *fakeTask) ID() string                                          { return t.id }
func (t *fakeTask) Name() string                                        { return t.id }
func (t *fakeTask) Kind() pipeline.Kind                                 { return pipeline.KindCPU }
func (t *fakeTask) DesiredPoolSize() (int, bool)                        { return 0, false }
func (t *fakeTask) MaxAttempts() int                                    { return 1 }
func (t *fakeTask) MaxIPM() (int, bool)                                 { return 0, false }
func (t *fakeTask) Priority() int                                       { return 0 }
func (t *fakeTask) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (t *fakeTask) Initialize() error                                   { return nil }
func (t *fakeTask) Process(item *pipeline.WorkItem) (bool, error)       { return true, nil }

// rejectingTask always fails LoadPreferences, for ConfigError paths.
type rejectingTask struct{ fakeTask }

func (t *rejectingTask) LoadPreferences(map[string]any, map[string]any) bool { return false }

var errSaveFailed = errors.New("fake sink: save failed")

// fakeSink records every item it saves.
type fakeSink struct {
	id   string
	mu   sync.Mutex
	n    int
	fail bool
}

func (s *fakeSink) ID() string                                          { return s.id }
func (s *fakeSink) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (s *fakeSink) Initialize() error                                   { return nil }

func (s *fakeSink) Save(item *pipeline.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errSaveFailed
	}
	s.n++
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// slowSink takes delay per Save, slow enough that a fast upstream source
// backs its queue up to capacity.
type slowSink struct {
	id    string
	delay time.Duration
	mu    sync.Mutex
	n     int
}

func (s *slowSink) ID() string                                          { return s.id }
func (s *slowSink) LoadPreferences(map[string]any, map[string]any) bool { return true }
func (s *slowSink) Initialize() error                                   { return nil }

func (s *slowSink) Save(item *pipeline.WorkItem) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return nil
}
