package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func countingEncoder(calls *int, encoded *[]string) EncodeFunc {
	return func(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
		_ = ctx
		*calls++
		out := make([][]float32, len(texts))
		for i, t := range texts {
			*encoded = append(*encoded, t)
			out[i] = []float32{float32(len(t)), 1}
		}
		return out, nil
	}
}

func TestGetOrCompute_MemoizesWithinRun(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ids := []string{"a", "b"}
	texts := []string{"one", "three"}

	calls := 0
	var encoded []string
	enc := countingEncoder(&calls, &encoded)

	ctx := context.Background()
	first, err := c.GetOrCompute(ctx, "m1", "t1", "test", ids, texts, enc, 8)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if len(first) != 2 || first[0][0] != 3 || first[1][0] != 5 {
		t.Fatalf("vectors = %v", first)
	}
	if calls != 1 {
		t.Fatalf("encode calls = %d, want 1", calls)
	}

	second, err := c.GetOrCompute(ctx, "m1", "t1", "test", ids, texts, enc, 8)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("encode calls after rerun = %d, want 1 (memoized)", calls)
	}
	if second[0][0] != first[0][0] {
		t.Fatalf("rerun changed vectors")
	}
}

func TestGetOrCompute_KeysAreIndependent(t *testing.T) {
	c, _ := Open("")
	defer c.Close()
	ctx := context.Background()

	calls := 0
	var encoded []string
	enc := countingEncoder(&calls, &encoded)

	if _, err := c.GetOrCompute(ctx, "m1", "t1", "test", []string{"a"}, []string{"x"}, enc, 8); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}

	// Different model, task, or split each misses.
	for _, ns := range [][3]string{{"m2", "t1", "test"}, {"m1", "t2", "test"}, {"m1", "t1", "train"}} {
		before := calls
		if _, err := c.GetOrCompute(ctx, ns[0], ns[1], ns[2], []string{"a"}, []string{"x"}, enc, 8); err != nil {
			t.Fatalf("GetOrCompute %v: %v", ns, err)
		}
		if calls != before+1 {
			t.Fatalf("namespace %v did not recompute", ns)
		}
	}
}

func TestGetOrCompute_PartialBatchResilience(t *testing.T) {
	c, _ := Open("")
	defer c.Close()
	ctx := context.Background()

	ids := make([]string, 10)
	texts := make([]string, 10)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		texts[i] = ids[i]
	}

	// Batches of 2: the middle sub-batch (items e,f) fails on the first
	// attempt; the sub-batches after it must still be encoded and cached.
	attempt := 0
	var retried []string
	enc := func(ctx context.Context, batch []string, batchSize int) ([][]float32, error) {
		_ = ctx
		attempt++
		if attempt == 3 {
			return nil, errors.New("gpu fell over")
		}
		if attempt > 5 {
			retried = append(retried, batch...)
		}
		out := make([][]float32, len(batch))
		for i := range batch {
			out[i] = []float32{float32(i)}
		}
		return out, nil
	}

	if _, err := c.GetOrCompute(ctx, "m", "t", "test", ids, texts, enc, 2); err == nil {
		t.Fatalf("expected sub-batch failure")
	}
	if attempt != 5 {
		t.Fatalf("encode attempts = %d, want all 5 sub-batches tried", attempt)
	}

	// Everything outside the failed sub-batch is cached, before and after it.
	for i, id := range ids {
		_, ok := c.Get("m", "t", "test", id)
		if i == 4 || i == 5 {
			if ok {
				t.Fatalf("item %q should be absent after failed batch", id)
			}
			continue
		}
		if !ok {
			t.Fatalf("item %q should be cached", id)
		}
	}

	// Retry only encodes the two failed items.
	if _, err := c.GetOrCompute(ctx, "m", "t", "test", ids, texts, enc, 2); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(retried) != 2 || retried[0] != ids[4] || retried[1] != ids[5] {
		t.Fatalf("retry encoded %v, want only %v", retried, ids[4:6])
	}
}

func TestGetOrCompute_ShapeErrors(t *testing.T) {
	c, _ := Open("")
	defer c.Close()
	ctx := context.Background()

	{
		enc := func(ctx context.Context, batch []string, batchSize int) ([][]float32, error) {
			return [][]float32{{1}}, nil // short
		}
		if _, err := c.GetOrCompute(ctx, "m", "t", "s", []string{"a", "b"}, []string{"x", "y"}, enc, 8); err == nil {
			t.Fatalf("short result: expected error")
		}
		// Nothing from the bad batch was cached.
		if _, ok := c.Get("m", "t", "s", "a"); ok {
			t.Fatalf("partial vector stored after shape error")
		}
	}
	{
		enc := func(ctx context.Context, batch []string, batchSize int) ([][]float32, error) {
			return [][]float32{{1}, {}}, nil // empty vector
		}
		if _, err := c.GetOrCompute(ctx, "m", "t", "s", []string{"a", "b"}, []string{"x", "y"}, enc, 8); err == nil {
			t.Fatalf("empty vector: expected error")
		}
	}
}

func TestDiskCache_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.db")
	ctx := context.Background()

	calls := 0
	var encoded []string
	enc := countingEncoder(&calls, &encoded)

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want, err := c1.GetOrCompute(ctx, "m", "t", "test", []string{"a"}, []string{"hello"}, enc, 8)
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	got, err := c2.GetOrCompute(ctx, "m", "t", "test", []string{"a"}, []string{"hello"}, enc, 8)
	if err != nil {
		t.Fatalf("GetOrCompute after reopen: %v", err)
	}
	if calls != 1 {
		t.Fatalf("encode calls = %d, want 1 (disk hit)", calls)
	}
	if len(got[0]) != len(want[0]) || got[0][0] != want[0][0] {
		t.Fatalf("reopened vector = %v, want %v", got[0], want[0])
	}

	// A different model identity misses the disk entry.
	if _, err := c2.GetOrCompute(ctx, "m2", "t", "test", []string{"a"}, []string{"hello"}, enc, 8); err != nil {
		t.Fatalf("GetOrCompute m2: %v", err)
	}
	if calls != 2 {
		t.Fatalf("encode calls = %d, want 2", calls)
	}
}

func TestEncodingRoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e7}
	got := bytesToFloat32(float32ToBytes(v))
	if len(got) != len(v) {
		t.Fatalf("round trip length = %d", len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("round trip [%d] = %v, want %v", i, got[i], v[i])
		}
	}

	if bytesToFloat32([]byte{1, 2, 3}) != nil {
		t.Fatalf("invalid length should decode to nil")
	}
	if float32ToBytes(nil) != nil {
		t.Fatalf("empty vector should encode to nil")
	}
}
