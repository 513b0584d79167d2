package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/forgekiln/dataforge/internal/pipeline"
)

// StageReport is one Stage's final counters, keyed by its Task's identity.
// The per-task breakdown is what operators act on; an aggregate total
// alone would hide which stage rejected what.
type StageReport struct {
	TaskID    string
	Name      string
	Priority  int
	PoolSize  int
	Processed int64
	Rejected  int64
}

// Report summarizes one completed (or interrupted) pipeline run.
type Report struct {
	RunID          string
	Submitted      int64
	Duration       time.Duration
	ItemsPerSecond float64
	Stages         []StageReport
}

func buildReport(runID string, submitted int64, duration time.Duration, sched *pipeline.Scheduler) *Report {
	stages := sched.Stages()
	out := make([]StageReport, 0, len(stages))
	for _, st := range stages {
		out = append(out, StageReport{
			TaskID:    st.Task().ID(),
			Name:      st.Task().Name(),
			Priority:  st.Task().Priority(),
			PoolSize:  st.PoolSize(),
			Processed: st.Processed(),
			Rejected:  st.Rejected(),
		})
	}

	var ips float64
	if seconds := duration.Seconds(); seconds > 0 {
		ips = float64(submitted) / seconds
	}

	return &Report{
		RunID:          runID,
		Submitted:      submitted,
		Duration:       duration,
		ItemsPerSecond: ips,
		Stages:         out,
	}
}

// String renders the report the way `dataforge run` prints its final
// summary to stdout.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: submitted=%d duration=%s items/sec=%.2f\n",
		r.RunID, r.Submitted, r.Duration.Round(time.Millisecond), r.ItemsPerSecond)
	for _, st := range r.Stages {
		fmt.Fprintf(&b, "  %-24s pool=%-3d processed=%-6d rejected=%d\n",
			st.Name, st.PoolSize, st.Processed, st.Rejected)
	}
	return b.String()
}
