package store

import (
	"context"
	"errors"
	"time"

	"github.com/stellarlinkco/embench/internal/result"
)

var (
	// ErrNotFound means no result exists for the (model, task) pair.
	ErrNotFound = errors.New("store: result not found")
	// ErrStaleSchema means the stored result was written under a different
	// schema version. Callers treat it as absent; records are never
	// migrated in place.
	ErrStaleSchema = errors.New("store: stale result schema")
)

// ResultWriter defines persistence for task results. Saving never mutates
// earlier records; a rerun writes a superseding record.
type ResultWriter interface {
	Save(ctx context.Context, res *result.TaskResult) error
}

// ResultReader defines read access to stored results. Load and List return
// only the latest record per (model, task).
type ResultReader interface {
	Load(ctx context.Context, modelID, taskName string) (*result.TaskResult, error)
	List(ctx context.Context, filter Filter) ([]*result.TaskResult, error)
}

// Analytics defines cross-model queries.
type Analytics interface {
	Compare(ctx context.Context, modelA, modelB string) (*Comparison, error)
}

// Store defines persistence for benchmark results.
type Store interface {
	ResultWriter
	ResultReader
	Analytics
	Close() error
}

// Filter narrows List output. Zero fields match everything.
type Filter struct {
	ModelID  string
	TaskName string
	Revision string
	Since    time.Time
	Limit    int
}

// Comparison pairs two models' main scores on the tasks both completed.
type Comparison struct {
	ModelA string
	ModelB string
	Tasks  []TaskComparison
}

// TaskComparison is one task's main scores side by side. Delta is B minus A.
type TaskComparison struct {
	TaskName string
	Metric   string
	ScoreA   float64
	ScoreB   float64
	Delta    float64
}
