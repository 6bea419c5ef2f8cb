package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stellarlinkco/embench/internal/task"
)

// Source provides raw split content for a pinned dataset. Implementations
// distinguish transient from permanent failures by wrapping the former with
// Transient.
type Source interface {
	Fetch(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error)
}

// FSSource reads splits from <root>/<dataset path>/<split>.jsonl. Missing
// files are permanent errors.
type FSSource struct {
	Root string
}

func (s *FSSource) Fetch(ctx context.Context, ref task.DatasetRef, split string) (io.ReadCloser, error) {
	if s == nil {
		return nil, errors.New("dataset: nil source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	split = strings.TrimSpace(split)
	if split == "" {
		return nil, errors.New("dataset: empty split name")
	}

	path := filepath.Join(s.Root, filepath.FromSlash(ref.Path), split+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	return f, nil
}
