package runner

import (
	"time"

	"github.com/stellarlinkco/embench/internal/result"
)

// State tracks one task's progress through the run pipeline.
type State string

const (
	StatePending     State = "pending"
	StateLoadingData State = "loading_data"
	StateEncoding    State = "encoding"
	StateEvaluating  State = "evaluating"
	StateAggregating State = "aggregating"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Config defines runner behavior.
type Config struct {
	Seed          int64
	Concurrency   int // max tasks evaluated at once
	BatchSize     int // encoder batch size
	StopOnFailure bool
}

// TaskOutcome reports one task's terminal state. FailedIn names the pipeline
// stage a failed task died in.
type TaskOutcome struct {
	TaskName string
	State    State
	FailedIn State
	Cached   bool // satisfied from the store without encoding
	Result   *result.TaskResult
	Err      error
}

// RunSummary aggregates outcomes for one run.
type RunSummary struct {
	RunID      string
	ModelID    string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []TaskOutcome
	Done       int
	Failed     int
	Cached     int
}

// Failure reports whether the outcome ended in failure.
func (o TaskOutcome) Failure() bool { return o.State == StateFailed }
