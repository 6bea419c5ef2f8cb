// Package cache is the write-once embedding cache. Entries are keyed by
// (model identity, task name, split, item id); a changed model or dataset
// revision produces different keys, so staleness never needs explicit
// invalidation. An optional SQLite layer persists vectors across runs.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EncodeFunc is the external model call: one vector per text, in order.
type EncodeFunc func(ctx context.Context, texts []string, batchSize int) ([][]float32, error)

type key struct {
	model string
	task  string
	split string
	item  string
}

// Cache layers an in-process map over an optional on-disk store. Opened at
// run start and closed at run end; callers pass the handle around rather
// than relying on ambient state.
type Cache struct {
	mu   sync.Mutex
	mem  map[key][]float32
	disk *diskStore

	// loaded tracks which (model, task, split) namespaces were pulled from
	// disk into memory.
	loaded map[[3]string]bool
}

// Open creates a cache. An empty path keeps everything in memory; otherwise
// vectors persist at the given SQLite path across runs.
func Open(path string) (*Cache, error) {
	c := &Cache{
		mem:    make(map[key][]float32),
		loaded: make(map[[3]string]bool),
	}
	if path != "" {
		d, err := openDiskStore(path)
		if err != nil {
			return nil, err
		}
		c.disk = d
	}
	return c, nil
}

// Close flushes nothing (writes are immediate) and releases the disk handle.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.disk.close()
}

// Get returns the cached vector for one item, if present in memory or on
// disk.
func (c *Cache) Get(model, taskName, split, item string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(model, taskName, split); err != nil {
		return nil, false
	}
	v, ok := c.mem[key{model, taskName, split, item}]
	return v, ok
}

// GetOrCompute returns one vector per item, in item order. Missing items are
// encoded through encode in sub-batches of batchSize and cached before
// returning. A failing sub-batch does not stop the rest: every other
// sub-batch is still encoded and cached, only the failed items remain
// absent, and the first error is returned. The lock is never held across
// the encode call.
func (c *Cache) GetOrCompute(ctx context.Context, model, taskName, split string, ids, texts []string, encode EncodeFunc, batchSize int) ([][]float32, error) {
	if c == nil {
		return nil, errors.New("cache: nil cache")
	}
	if ctx == nil {
		return nil, errors.New("cache: nil context")
	}
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("cache: %d ids for %d texts", len(ids), len(texts))
	}
	if encode == nil {
		return nil, errors.New("cache: nil encode func")
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	out := make([][]float32, len(ids))
	var missIdx []int

	c.mu.Lock()
	if err := c.ensureLoaded(model, taskName, split); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	for i, id := range ids {
		if v, ok := c.mem[key{model, taskName, split, id}]; ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
	}
	c.mu.Unlock()

	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for start := 0; start < len(missIdx); start += batchSize {
		end := start + batchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		batch := missIdx[start:end]

		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}

		batchTexts := make([]string, len(batch))
		batchIDs := make([]string, len(batch))
		for j, i := range batch {
			batchTexts[j] = texts[i]
			batchIDs[j] = ids[i]
		}

		vecs, err := encode(ctx, batchTexts, batchSize)
		if err != nil {
			fail(fmt.Errorf("cache: encode %s/%s/%s: %w", model, taskName, split, err))
			continue
		}
		if len(vecs) != len(batch) {
			fail(fmt.Errorf("cache: encode returned %d vectors for %d items", len(vecs), len(batch)))
			continue
		}
		bad := false
		for j, v := range vecs {
			if len(v) == 0 {
				fail(fmt.Errorf("cache: empty vector for item %q", batchIDs[j]))
				bad = true
				break
			}
		}
		if bad {
			continue
		}

		if err := c.put(model, taskName, split, batchIDs, vecs); err != nil {
			fail(err)
			continue
		}
		for j, i := range batch {
			out[i] = vecs[j]
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// put records a computed batch in memory and, when configured, on disk.
// Existing keys are never overwritten.
func (c *Cache) put(model, taskName, split string, ids []string, vecs [][]float32) error {
	c.mu.Lock()
	for i, id := range ids {
		k := key{model, taskName, split, id}
		if _, ok := c.mem[k]; !ok {
			c.mem[k] = vecs[i]
		}
	}
	c.mu.Unlock()

	if c.disk == nil {
		return nil
	}
	return c.disk.storeBatch(model, taskName, split, ids, vecs)
}

// ensureLoaded pulls a namespace from disk into memory once per run.
// Callers hold c.mu.
func (c *Cache) ensureLoaded(model, taskName, split string) error {
	if c.disk == nil {
		return nil
	}
	ns := [3]string{model, taskName, split}
	if c.loaded[ns] {
		return nil
	}

	stored, err := c.disk.loadNamespace(model, taskName, split)
	if err != nil {
		return err
	}
	for item, v := range stored {
		k := key{model, taskName, split, item}
		if _, ok := c.mem[k]; !ok {
			c.mem[k] = v
		}
	}
	c.loaded[ns] = true
	return nil
}
