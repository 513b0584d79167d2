package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/forgekiln/dataforge/internal/logging"
)

// pollTimeout bounds how long an idle worker waits on its own queue before
// asking the Scheduler to steal and, more importantly, before revisiting the
// shutdown flag. It is not a retry/backoff knob.
const pollTimeout = 1 * time.Second

// Stage is one Task plus its bounded queue and worker pool. Its counters,
// idle flags, and first-work timestamp are shared across worker goroutines
// and are only ever touched through atomics.
type Stage struct {
	task      Task
	scheduler *Scheduler
	queue     *queue
	poolSize  int
	logger    *logging.Logger

	idle      []atomic.Bool
	processed atomic.Int64
	rejected  atomic.Int64
	firstWork atomic.Int64 // unix nano; 0 means unset

	wg sync.WaitGroup
}

// newStage builds a Stage and immediately starts its workers.
func newStage(scheduler *Scheduler, task Task, poolSize int, logger *logging.Logger) *Stage {
	if poolSize < 1 {
		poolSize = 1
	}
	s := &Stage{
		task:      task,
		scheduler: scheduler,
		queue:     newQueue(queueCapacity(poolSize), scheduler.Done()),
		poolSize:  poolSize,
		logger:    logger,
		idle:      make([]atomic.Bool, poolSize),
	}
	for i := range s.idle {
		s.idle[i].Store(true)
	}
	s.wg.Add(poolSize)
	for i := 0; i < poolSize; i++ {
		go s.worker(i)
	}
	return s
}

// Submit enqueues item as work for this Stage, blocking while the queue is
// full until the pipeline shuts down. It reports false, without enqueuing
// item, if shutdown fires first; the caller then owns item and must
// dispose of it.
func (s *Stage) Submit(item *WorkItem) bool {
	return s.queue.push(entry{stage: s, item: item})
}

func (s *Stage) stealWork() (entry, bool) {
	return s.queue.tryPop()
}

// Wait blocks until every worker goroutine in this Stage has exited. Called
// by the Driver after shutdown to know counters are final.
func (s *Stage) Wait() { s.wg.Wait() }

// Task returns the Task this Stage runs, for reporting/introspection.
func (s *Stage) Task() Task { return s.task }

// PoolSize returns the number of workers in this Stage.
func (s *Stage) PoolSize() int { return s.poolSize }

// Processed returns the running count of items whose Process call
// completed (accepted or rejected) on this Stage.
func (s *Stage) Processed() int64 { return s.processed.Load() }

// Rejected returns the running count of items this Stage dropped.
func (s *Stage) Rejected() int64 { return s.rejected.Load() }

// QueueLen returns the current number of items waiting in this Stage's
// queue (not counting in-flight work).
func (s *Stage) QueueLen() int { return s.queue.len() }

// IsIdle reports whether every worker is idle and no item pushed to this
// Stage is still pending (queued or held by a worker that hasn't signalled
// task-done). This is the per-stage half of the pipeline's quiescence
// definition. The pending count, not raw queue depth, is what makes the
// check safe against the window between a worker dequeuing an item and
// marking itself busy.
func (s *Stage) IsIdle() bool {
	if s.queue.pending() > 0 {
		return false
	}
	for i := range s.idle {
		if !s.idle[i].Load() {
			return false
		}
	}
	return true
}

func (s *Stage) worker(index int) {
	defer s.wg.Done()
	for {
		if s.scheduler.IsShutdown() {
			return
		}

		s.idle[index].Store(true)
		e, ok := s.queue.pop(pollTimeout)
		if !ok {
			if s.scheduler.IsShutdown() {
				return
			}
			stolen, found := s.scheduler.steal(s)
			if !found {
				continue
			}
			e = stolen
		}
		s.idle[index].Store(false)

		s.execute(e)
	}
}

// execute runs one item through its governing stage's rate limit and retry
// policy. e.stage may differ from s when this worker stole the item: the
// policy applied is always e.stage's, never s's.
func (s *Stage) execute(e entry) {
	target := e.stage
	// Terminal outcomes and resubmissions alike count as one task-done on
	// the governing stage's queue. Deferred so it runs after any forward
	// Submit has already registered the item downstream; the pending counts
	// never both read zero while the item is live.
	defer target.queue.taskDone()

	if target.throttled() {
		if !target.Submit(e.item) {
			e.item.Close()
		}
		return
	}
	target.markFirstWorkIfUnset()

	accepted := false
	attempts := target.task.MaxAttempts()
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		ok, err := target.task.Process(e.item)
		if err != nil {
			target.logger.Debugf("task %q attempt %d/%d failed: %v", target.task.ID(), attempt+1, attempts, err)
			continue
		}
		accepted = ok
		break
	}

	target.processed.Add(1)
	if accepted {
		next := target.scheduler.NextStage(target)
		if next == nil {
			return
		}
		if target.scheduler.IsShutdown() || !next.Submit(e.item) {
			e.item.Close()
		}
		return
	}
	target.rejected.Add(1)
}

// throttled measures the instantaneous rate at the start of each work
// execution; an over-rate item is resubmitted to its own stage's queue
// rather than slept on. elapsed<=0 or processed=0 never throttles, and an
// unlimited Task always skips the check.
func (s *Stage) throttled() bool {
	maxIPM, ok := s.task.MaxIPM()
	if !ok {
		return false
	}
	first := s.firstWork.Load()
	if first == 0 {
		return false
	}
	processed := s.processed.Load()
	if processed == 0 {
		return false
	}
	elapsed := time.Since(time.Unix(0, first)).Seconds()
	if elapsed <= 0 {
		return false
	}
	ipm := (float64(processed) / elapsed) * 60
	return ipm > float64(maxIPM)
}

func (s *Stage) markFirstWorkIfUnset() {
	s.firstWork.CompareAndSwap(0, time.Now().UnixNano())
}
