// Package evaluator scores a model's embeddings against a task's gold
// labels. One evaluator variant exists per task type, all behind the same
// contract; the registry dispatches on the descriptor's type tag.
package evaluator

import (
	"context"
	"fmt"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/task"
)

// Embeddings maps an item id to its vector for one split.
type Embeddings map[string][]float32

// Report holds the metric values one evaluator invocation produced for one
// split. A metric that could not be computed is listed in Failures with a
// reason instead of a value, so the other metrics still get reported.
// Reports are immutable once returned.
type Report struct {
	Scores   map[string]float64            `json:"scores"`
	Subsets  map[string]map[string]float64 `json:"subsets,omitempty"`
	Failures map[string]string             `json:"failures,omitempty"`
}

func NewReport() *Report {
	return &Report{Scores: make(map[string]float64)}
}

func (r *Report) Set(metric string, value float64) {
	if r.Scores == nil {
		r.Scores = make(map[string]float64)
	}
	r.Scores[metric] = value
}

// SetSubset records a metric value for a named subset, such as one language
// pair of a multilingual task.
func (r *Report) SetSubset(subset, metric string, value float64) {
	if r.Subsets == nil {
		r.Subsets = make(map[string]map[string]float64)
	}
	m := r.Subsets[subset]
	if m == nil {
		m = make(map[string]float64)
		r.Subsets[subset] = m
	}
	m[metric] = value
}

// Fail records a metric-level failure without aborting the evaluation.
func (r *Report) Fail(metric, reason string) {
	if r.Failures == nil {
		r.Failures = make(map[string]string)
	}
	r.Failures[metric] = reason
}

// Evaluator is the per-task-type contract. Items lists the encodable units
// of one split so the caller can drive the embedding cache; Evaluate scores
// the named split given vectors for every split. Evaluation is deterministic
// for fixed embeddings and seed.
type Evaluator interface {
	Type() task.Type
	Items(data *dataset.SplitData) []dataset.Item
	Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error)
}

// Registry stores evaluators by task type.
type Registry struct {
	evaluators map[task.Type]Evaluator
}

func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[task.Type]Evaluator)}
}

func (r *Registry) Register(e Evaluator) {
	if r == nil {
		panic("evaluator: register on nil registry")
	}
	if e == nil {
		panic("evaluator: register nil evaluator")
	}
	if r.evaluators == nil {
		r.evaluators = make(map[task.Type]Evaluator)
	}
	r.evaluators[e.Type()] = e
}

// Get returns the evaluator for a task type.
func (r *Registry) Get(t task.Type) (Evaluator, bool) {
	if r == nil || r.evaluators == nil {
		return nil, false
	}
	e, ok := r.evaluators[t]
	return e, ok
}

// DefaultRegistry registers every built-in evaluator variant.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&RetrievalEvaluator{})
	r.Register(&ClassificationEvaluator{})
	r.Register(&ClusteringEvaluator{})
	r.Register(&STSEvaluator{})
	r.Register(&RerankingEvaluator{})
	r.Register(&PairClassificationEvaluator{})
	r.Register(&BitextMiningEvaluator{})
	r.Register(&SummarizationEvaluator{})
	return r
}

// splitVectors fetches the embeddings for one split or fails with a uniform
// error.
func splitVectors(vectors map[string]Embeddings, split string) (Embeddings, error) {
	emb, ok := vectors[split]
	if !ok {
		return nil, fmt.Errorf("evaluator: no embeddings for split %q", split)
	}
	return emb, nil
}

// vectorFor looks up one item's vector.
func vectorFor(emb Embeddings, id string) ([]float32, error) {
	v, ok := emb[id]
	if !ok {
		return nil, fmt.Errorf("evaluator: missing embedding for item %q", id)
	}
	return v, nil
}
