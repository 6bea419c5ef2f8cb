// Package runner orchestrates benchmark runs: per task it loads data,
// encodes items through the embedding cache, dispatches the evaluator, and
// persists the aggregated result. Tasks already answered by the store are
// short-circuited without touching the encoder.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stellarlinkco/embench/internal/cache"
	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/evaluator"
	"github.com/stellarlinkco/embench/internal/model"
	"github.com/stellarlinkco/embench/internal/result"
	"github.com/stellarlinkco/embench/internal/store"
	"github.com/stellarlinkco/embench/internal/task"
)

// Runner evaluates tasks against one encoder.
type Runner struct {
	adapter  *dataset.Adapter
	encoder  model.Encoder
	cache    *cache.Cache
	registry *evaluator.Registry
	results  store.Store
	cfg      Config

	sem chan struct{}
}

// New creates a Runner with normalized config.
func New(adapter *dataset.Adapter, encoder model.Encoder, c *cache.Cache, registry *evaluator.Registry, results store.Store, cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	return &Runner{
		adapter:  adapter,
		encoder:  encoder,
		cache:    c,
		registry: registry,
		results:  results,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.Concurrency),
	}
}

// Run evaluates every task and returns per-task outcomes. A task failure
// never aborts its siblings unless StopOnFailure is set; results persisted
// before a cancellation stay persisted.
func (r *Runner) Run(ctx context.Context, tasks []*task.Descriptor) (*RunSummary, error) {
	if r == nil {
		return nil, errors.New("runner: nil runner")
	}
	if ctx == nil {
		return nil, errors.New("runner: nil context")
	}
	if r.adapter == nil || r.encoder == nil || r.cache == nil || r.registry == nil || r.results == nil {
		return nil, errors.New("runner: missing dependency")
	}
	if len(tasks) == 0 {
		return nil, errors.New("runner: no tasks")
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		ModelID:   r.encoder.Identity(),
		StartedAt: time.Now().UTC(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]TaskOutcome, len(tasks))
	var wg sync.WaitGroup
	for i, d := range tasks {
		wg.Add(1)
		go func(i int, d *task.Descriptor) {
			defer wg.Done()

			name := ""
			if d != nil {
				name = d.Name
			}

			if err := r.acquire(runCtx); err != nil {
				outcomes[i] = TaskOutcome{TaskName: name, State: StateFailed, FailedIn: StatePending, Err: err}
				return
			}
			defer r.release()

			outcomes[i] = r.runTask(runCtx, summary.RunID, d)
			if outcomes[i].Failure() && r.cfg.StopOnFailure {
				cancel()
			}
		}(i, d)
	}
	wg.Wait()

	summary.Outcomes = outcomes
	summary.FinishedAt = time.Now().UTC()
	for _, o := range outcomes {
		switch {
		case o.State == StateDone && o.Cached:
			summary.Done++
			summary.Cached++
		case o.State == StateDone:
			summary.Done++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

// runTask walks one task through the pipeline states.
func (r *Runner) runTask(ctx context.Context, runID string, d *task.Descriptor) TaskOutcome {
	fail := func(stage State, err error) TaskOutcome {
		name := ""
		if d != nil {
			name = d.Name
		}
		return TaskOutcome{TaskName: name, State: StateFailed, FailedIn: stage, Err: err}
	}

	if err := d.Validate(); err != nil {
		return fail(StatePending, err)
	}
	modelID := r.encoder.Identity()

	ev, ok := r.registry.Get(d.Type)
	if !ok {
		return fail(StatePending, fmt.Errorf("runner: no evaluator for task type %q", d.Type))
	}

	// A stored result for the same revision answers the task outright.
	// Not-found and stale-schema both mean absent.
	prior, err := r.results.Load(ctx, modelID, d.Name)
	switch {
	case err == nil:
		if prior.Revision == d.Dataset.Revision {
			return TaskOutcome{TaskName: d.Name, State: StateDone, Cached: true, Result: prior}
		}
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrStaleSchema):
	default:
		return fail(StatePending, err)
	}

	data, err := r.adapter.Adapt(ctx, d)
	if err != nil {
		return fail(StateLoadingData, err)
	}

	vectors, err := r.encode(ctx, ev, d, modelID, data)
	if err != nil {
		return fail(StateEncoding, err)
	}

	reports := make(map[string]*evaluator.Report)
	for _, split := range scoredSplits(d) {
		rep, err := ev.Evaluate(ctx, d, data, vectors, split, r.cfg.Seed)
		if err != nil {
			return fail(StateEvaluating, err)
		}
		reports[split] = rep
	}

	res, err := result.Aggregate(d, modelID, runID, reports)
	if err != nil {
		return fail(StateAggregating, err)
	}
	if err := r.results.Save(ctx, res); err != nil {
		return fail(StateAggregating, err)
	}

	return TaskOutcome{TaskName: d.Name, State: StateDone, Result: res}
}

// encode runs every split's items through the embedding cache.
func (r *Runner) encode(ctx context.Context, ev evaluator.Evaluator, d *task.Descriptor, modelID string, data dataset.Data) (map[string]evaluator.Embeddings, error) {
	splits := make([]string, 0, len(data))
	for s := range data {
		splits = append(splits, s)
	}
	sort.Strings(splits)

	vectors := make(map[string]evaluator.Embeddings, len(splits))
	for _, split := range splits {
		items := ev.Items(data[split])
		ids := make([]string, len(items))
		texts := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
			texts[i] = it.Text
		}

		vecs, err := r.cache.GetOrCompute(ctx, modelID, d.Name, split, ids, texts, r.encoder.Encode, r.cfg.BatchSize)
		if err != nil {
			return nil, err
		}

		emb := make(evaluator.Embeddings, len(ids))
		for i, id := range ids {
			emb[id] = vecs[i]
		}
		vectors[split] = emb
	}
	return vectors, nil
}

// scoredSplits lists the splits an evaluator scores: the declared splits,
// minus classification's train split, which only feeds the probe.
func scoredSplits(d *task.Descriptor) []string {
	splits := d.EvalSplits()
	if d.Type != task.Classification {
		return splits
	}
	out := splits[:0:0]
	for _, s := range splits {
		if s != "train" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, d.EvalSplit())
	}
	return out
}

func (r *Runner) acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() {
	<-r.sem
}
