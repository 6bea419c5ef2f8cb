package runner

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stellarlinkco/embench/internal/cache"
	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/evaluator"
	"github.com/stellarlinkco/embench/internal/store"
	"github.com/stellarlinkco/embench/internal/task"
)

type fakeSource struct {
	mu      sync.Mutex
	content map[string]string // "path/split" -> jsonl
	calls   int
}

func (s *fakeSource) Fetch(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	body, ok := s.content[ref.Path+"/"+split]
	if !ok {
		return nil, errors.New("no such split")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// countingEncoder embeds each text as a function of its first byte, so rank
// order tracks lexical distance deterministically.
type countingEncoder struct {
	mu    sync.Mutex
	calls int
	texts int
}

func (e *countingEncoder) Name() string     { return "fake" }
func (e *countingEncoder) Identity() string { return "fake/count" }

func (e *countingEncoder) Encode(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	_ = ctx
	_ = batchSize
	e.mu.Lock()
	e.calls++
	e.texts += len(texts)
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		b := float32(1)
		if len(t) > 0 {
			b = float32(t[0])
		}
		out[i] = []float32{b, 1}
	}
	return out, nil
}

func (e *countingEncoder) encodeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

const stsJSONL = `{"id":"p1","sentence1":"aaa","sentence2":"aaa","score":5}
{"id":"p2","sentence1":"aaa","sentence2":"mmm","score":2}
{"id":"p3","sentence1":"aaa","sentence2":"zzz","score":1}
`

func stsTask(name, revision string) *task.Descriptor {
	return &task.Descriptor{
		Name:      name,
		Type:      task.STS,
		Dataset:   task.DatasetRef{Path: "sts/" + name, Revision: revision},
		MainScore: "cosine_spearman",
	}
}

type fixture struct {
	runner  *Runner
	source  *fakeSource
	encoder *countingEncoder
	adapter *dataset.Adapter
	store   *store.SQLiteStore
	cfg     Config
}

// freshRunner shares the fixture's source, encoder, and store but starts
// with an empty embedding cache, so only the store can short-circuit work.
func (f *fixture) freshRunner(t *testing.T) *Runner {
	t.Helper()
	emb, err := cache.Open("")
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return New(f.adapter, f.encoder, emb, evaluator.DefaultRegistry(), f.store, f.cfg)
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	source := &fakeSource{content: map[string]string{
		"sts/toy-sts/test": stsJSONL,
	}}
	encoder := &countingEncoder{}

	emb, err := cache.Open("")
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	adapter := &dataset.Adapter{Source: source, Retry: dataset.DefaultRetryPolicy()}
	r := New(adapter, encoder, emb, evaluator.DefaultRegistry(), st, cfg)
	return &fixture{runner: r, source: source, encoder: encoder, adapter: adapter, store: st, cfg: cfg}
}

func TestRun(t *testing.T) {
	f := newFixture(t, Config{Seed: 1})

	summary, err := f.runner.Run(context.Background(), []*task.Descriptor{stsTask("toy-sts", "rev-1")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Done != 1 || summary.Failed != 0 || summary.Cached != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.RunID == "" || summary.ModelID != "fake/count" {
		t.Fatalf("summary ids = %q / %q", summary.RunID, summary.ModelID)
	}

	out := summary.Outcomes[0]
	if out.State != StateDone || out.Result == nil {
		t.Fatalf("outcome = %+v", out)
	}
	// Identical sentences first, nearest lexical neighbor second.
	if got := out.Result.MainScore; got < 0.999 {
		t.Fatalf("MainScore = %v, want 1", got)
	}
	if out.Result.MainScoreSplit != "test" {
		t.Fatalf("MainScoreSplit = %q", out.Result.MainScoreSplit)
	}

	stored, err := f.store.Load(context.Background(), "fake/count", "toy-sts")
	if err != nil {
		t.Fatalf("Load after run: %v", err)
	}
	if stored.MainScore != out.Result.MainScore {
		t.Fatalf("stored %v, outcome %v", stored.MainScore, out.Result.MainScore)
	}
}

func TestRun_StoreShortCircuit(t *testing.T) {
	f := newFixture(t, Config{Seed: 1})
	ctx := context.Background()
	tasks := []*task.Descriptor{stsTask("toy-sts", "rev-1")}

	if _, err := f.runner.Run(ctx, tasks); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	encodesAfterFirst := f.encoder.encodeCalls()
	if encodesAfterFirst == 0 {
		t.Fatal("first run never called the encoder")
	}

	summary, err := f.freshRunner(t).Run(ctx, tasks)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	out := summary.Outcomes[0]
	if out.State != StateDone || !out.Cached {
		t.Fatalf("second run outcome = %+v, want cached done", out)
	}
	if got := f.encoder.encodeCalls(); got != encodesAfterFirst {
		t.Fatalf("second run called the encoder %d more times", got-encodesAfterFirst)
	}
}

func TestRun_RevisionChangeReevaluates(t *testing.T) {
	f := newFixture(t, Config{Seed: 1})
	ctx := context.Background()

	if _, err := f.runner.Run(ctx, []*task.Descriptor{stsTask("toy-sts", "rev-1")}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	summary, err := f.runner.Run(ctx, []*task.Descriptor{stsTask("toy-sts", "rev-2")})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	out := summary.Outcomes[0]
	if out.State != StateDone || out.Cached {
		t.Fatalf("revision change outcome = %+v, want fresh done", out)
	}
	if out.Result.Revision != "rev-2" {
		t.Fatalf("Revision = %q", out.Result.Revision)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	f := newFixture(t, Config{Seed: 1, Concurrency: 2})

	tasks := []*task.Descriptor{
		stsTask("missing-data", "rev-1"),
		stsTask("toy-sts", "rev-1"),
	}
	summary, err := f.runner.Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Done != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	failed := summary.Outcomes[0]
	if failed.State != StateFailed || failed.FailedIn != StateLoadingData || failed.Err == nil {
		t.Fatalf("failed outcome = %+v", failed)
	}
	ok := summary.Outcomes[1]
	if ok.State != StateDone {
		t.Fatalf("sibling outcome = %+v, want done despite failure", ok)
	}
}

func TestRun_InvalidDescriptor(t *testing.T) {
	f := newFixture(t, Config{})

	summary, err := f.runner.Run(context.Background(), []*task.Descriptor{{Name: "bad"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := summary.Outcomes[0]
	if out.State != StateFailed || out.FailedIn != StatePending {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestRun_NilArguments(t *testing.T) {
	var r *Runner
	if _, err := r.Run(context.Background(), []*task.Descriptor{stsTask("t", "r")}); err == nil {
		t.Fatal("expected error on nil runner")
	}

	f := newFixture(t, Config{})
	if _, err := f.runner.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error on empty task list")
	}
}

func TestScoredSplits(t *testing.T) {
	d := &task.Descriptor{Type: task.Classification, Splits: []string{"train", "test"}}
	got := scoredSplits(d)
	if len(got) != 1 || got[0] != "test" {
		t.Fatalf("scoredSplits = %v, want [test]", got)
	}

	d = &task.Descriptor{Type: task.STS, Splits: []string{"test", "validation"}}
	got = scoredSplits(d)
	if len(got) != 2 {
		t.Fatalf("scoredSplits = %v", got)
	}
}
