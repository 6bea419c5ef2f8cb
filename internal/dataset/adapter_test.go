package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stellarlinkco/embench/internal/task"
)

type fakeSource struct {
	content map[string]string // split -> jsonl
	err     error
	calls   int
}

func (s *fakeSource) Fetch(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error) {
	_ = ctx
	_ = ref
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.content[split]
	if !ok {
		return nil, errors.New("no such split")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func stsDescriptor() *task.Descriptor {
	return &task.Descriptor{
		Name:      "toy-sts",
		Type:      task.STS,
		Dataset:   task.DatasetRef{Path: "data/toy-sts", Revision: "rev1"},
		MainScore: "cosine_spearman",
	}
}

func TestAdapter_AdaptSTS(t *testing.T) {
	src := &fakeSource{content: map[string]string{
		"test": `{"sentence1":"a cat","sentence2":"a feline","score":4.5}
{"id":"p2","sentence1":"dog","sentence2":"car","score":0.5}`,
	}}
	a := &Adapter{Source: src}

	data, err := a.Adapt(context.Background(), stsDescriptor())
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}

	sd := data["test"]
	if sd == nil || len(sd.STS) != 2 {
		t.Fatalf("adapted = %+v", sd)
	}
	if sd.STS[0].ID != "test-1" {
		t.Fatalf("default id = %q, want test-1", sd.STS[0].ID)
	}
	if sd.STS[1].ID != "p2" || sd.STS[1].Score != 0.5 {
		t.Fatalf("row 2 = %+v", sd.STS[1])
	}
}

func TestAdapter_MalformedRowIsPermanent(t *testing.T) {
	src := &fakeSource{content: map[string]string{
		"test": `{"sentence1":"a","sentence2":"b"}`, // missing score
	}}
	a := &Adapter{Source: src, Retry: RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}}

	_, err := a.Adapt(context.Background(), stsDescriptor())
	if err == nil {
		t.Fatalf("expected error for malformed row")
	}
	if src.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1 (no retry on permanent failure)", src.calls)
	}
}

func TestAdapter_TransientRetriesThenSucceeds(t *testing.T) {
	body := `{"sentence1":"a","sentence2":"b","score":1}`
	src := &fakeSource{content: map[string]string{"test": body}}
	flaky := 0
	a := &Adapter{
		Source: sourceFunc(func(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error) {
			flaky++
			if flaky < 3 {
				return nil, Transient(errors.New("timeout"))
			}
			return src.Fetch(ctx, ref, split)
		}),
		Retry: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}

	data, err := a.Adapt(context.Background(), stsDescriptor())
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	if flaky != 3 {
		t.Fatalf("fetch attempts = %d, want 3", flaky)
	}
	if len(data["test"].STS) != 1 {
		t.Fatalf("adapted = %+v", data["test"])
	}
}

type sourceFunc func(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error)

func (f sourceFunc) Fetch(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error) {
	return f(ctx, ref, split)
}

func TestAdapter_ContentCacheSkipsSource(t *testing.T) {
	src := &fakeSource{content: map[string]string{
		"test": `{"sentence1":"a","sentence2":"b","score":1}`,
	}}
	a := &Adapter{Source: src, CacheDir: t.TempDir()}

	ctx := context.Background()
	d := stsDescriptor()

	if _, err := a.Adapt(ctx, d); err != nil {
		t.Fatalf("first Adapt: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", src.calls)
	}

	if _, err := a.Adapt(ctx, d); err != nil {
		t.Fatalf("second Adapt: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("fetch calls after cached run = %d, want 1", src.calls)
	}

	// A new revision is a different cache key and must hit the source.
	d2 := stsDescriptor()
	d2.Dataset.Revision = "rev2"
	if _, err := a.Adapt(ctx, d2); err != nil {
		t.Fatalf("Adapt rev2: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("fetch calls after revision change = %d, want 2", src.calls)
	}
}

func TestAdapter_Retrieval(t *testing.T) {
	body := `{"kind":"query","id":"q1","text":"find the cat"}
{"kind":"doc","id":"d1","text":"a dog"}
{"kind":"doc","id":"d2","text":"a cat"}
{"kind":"qrel","query_id":"q1","doc_id":"d2","relevance":1}`
	src := &fakeSource{content: map[string]string{"test": body}}
	a := &Adapter{Source: src}

	d := &task.Descriptor{
		Name:      "toy-retrieval",
		Type:      task.Retrieval,
		Dataset:   task.DatasetRef{Path: "data/ret", Revision: "r"},
		MainScore: "ndcg_at_10",
	}
	data, err := a.Adapt(context.Background(), d)
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}

	rd := data["test"].Retrieval
	if rd == nil || len(rd.Queries) != 1 || len(rd.Corpus) != 2 {
		t.Fatalf("retrieval = %+v", rd)
	}
	if rd.Qrels["q1"]["d2"] != 1 {
		t.Fatalf("qrels = %+v", rd.Qrels)
	}
}

func TestAdapter_ClassificationAndClustering(t *testing.T) {
	a := &Adapter{Source: &fakeSource{content: map[string]string{
		"train": `{"text":"good","label":"pos"}`,
		"test":  `{"text":"bad","label":"neg"}`,
	}}}

	d := &task.Descriptor{
		Name:      "toy-clf",
		Type:      task.Classification,
		Dataset:   task.DatasetRef{Path: "data/clf", Revision: "r"},
		Splits:    []string{"train", "test"},
		MainScore: "accuracy",
	}
	data, err := a.Adapt(context.Background(), d)
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	if len(data["train"].Classification) != 1 || len(data["test"].Classification) != 1 {
		t.Fatalf("splits = %+v", data)
	}

	b := &Adapter{Source: &fakeSource{content: map[string]string{
		"test": `{"text":"x","cluster":0}
{"text":"y","cluster":1}`,
	}}}
	dc := &task.Descriptor{
		Name:      "toy-clu",
		Type:      task.Clustering,
		Dataset:   task.DatasetRef{Path: "data/clu", Revision: "r"},
		MainScore: "v_measure",
	}
	cdata, err := b.Adapt(context.Background(), dc)
	if err != nil {
		t.Fatalf("Adapt clustering: %v", err)
	}
	if got := cdata["test"].Clustering; len(got) != 2 || got[1].Cluster != 1 {
		t.Fatalf("clustering = %+v", got)
	}
}

func TestFSSource(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data", "toy")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := &FSSource{Root: root}
	rc, err := s.Fetch(context.Background(), task.DatasetRef{Path: "data/toy", Revision: "r"}, "test")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	rc.Close()

	if _, err := s.Fetch(context.Background(), task.DatasetRef{Path: "data/toy"}, "missing"); err == nil {
		t.Fatalf("missing split: expected error")
	}
}
