package pipeline

import "github.com/forgekiln/dataforge/internal/logging"

// WorkerConfig supplies the kind-default pool sizes used when a Task does
// not set DesiredPoolSize.
type WorkerConfig struct {
	CPUWorkers int
	GPUWorkers int
	IOWorkers  int
}

func (w WorkerConfig) poolSizeFor(t Task) int {
	if size, ok := t.DesiredPoolSize(); ok && size > 0 {
		return size
	}
	switch t.Kind() {
	case KindCPU:
		return orDefault(w.CPUWorkers)
	case KindGPU:
		return orDefault(w.GPUWorkers)
	default:
		return orDefault(w.IOWorkers)
	}
}

func orDefault(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Build constructs a Scheduler with one Stage per task, in the given order,
// plus a synthesized sink Stage wrapping sinks. Workers start immediately;
// the returned Scheduler is ready to receive Submit calls on its
// FirstStage(). tasks must be non-empty.
func Build(tasks []Task, sinks []Sink, workers WorkerConfig, logger *logging.Logger) *Scheduler {
	sched := NewScheduler()
	for _, task := range tasks {
		poolSize := workers.poolSizeFor(task)
		sched.addStage(newStage(sched, task, poolSize, logger.Named("stage."+task.ID())))
	}

	sinkStage := newStage(sched, newSinkTask(sinks, logger.Named("stage.sink")), orDefault(workers.IOWorkers), logger.Named("stage.sink"))
	sched.addStage(sinkStage)

	return sched
}
