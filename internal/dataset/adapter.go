package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/stellarlinkco/embench/internal/task"
)

// Adapter turns raw split content into evaluator-ready shapes. Transient
// source failures are retried under Retry; malformed rows fail permanently.
// When CacheDir is set, fetched content is kept on disk keyed by dataset
// identity and revision, so repeated runs skip the source entirely.
type Adapter struct {
	Source   Source
	CacheDir string
	Retry    RetryPolicy
}

// Adapt loads and normalizes every declared split of the task.
func (a *Adapter) Adapt(ctx context.Context, d *task.Descriptor) (Data, error) {
	if a == nil {
		return nil, errors.New("dataset: nil adapter")
	}
	if ctx == nil {
		return nil, errors.New("dataset: nil context")
	}
	if a.Source == nil {
		return nil, errors.New("dataset: nil source")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	splits := d.EvalSplits()
	if d.Type == task.Classification && !containsSplit(splits, "train") {
		// Classification fits its probe on train examples.
		splits = append(append([]string(nil), splits...), "train")
	}

	out := make(Data, len(splits))
	for _, split := range splits {
		raw, err := a.fetch(ctx, d.Dataset, split)
		if err != nil {
			return nil, fmt.Errorf("dataset: task %q split %q: %w", d.Name, split, err)
		}

		sd, err := adaptSplit(ctx, d.Type, split, raw)
		if err != nil {
			return nil, fmt.Errorf("dataset: task %q split %q: %w", d.Name, split, err)
		}
		out[split] = sd
	}
	return out, nil
}

// fetch returns the raw split bytes, reading through the on-disk content
// cache when one is configured.
func (a *Adapter) fetch(ctx context.Context, ref task.DatasetRef, split string) ([]byte, error) {
	var cachePath string
	if strings.TrimSpace(a.CacheDir) != "" {
		sum := sha256.Sum256([]byte(ref.Path))
		cachePath = filepath.Join(a.CacheDir, hex.EncodeToString(sum[:8]), ref.Revision, split+".jsonl")
		if b, err := os.ReadFile(cachePath); err == nil {
			return b, nil
		}
	}

	var raw []byte
	err := a.Retry.Do(ctx, func() error {
		rc, err := a.Source.Fetch(ctx, ref, split)
		if err != nil {
			return err
		}
		defer rc.Close()

		b, err := io.ReadAll(rc)
		if err != nil {
			return Transient(err)
		}
		raw = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := writeFileAtomic(cachePath, raw); err != nil {
			return nil, fmt.Errorf("dataset: cache write: %w", err)
		}
	}
	return raw, nil
}

// writeFileAtomic writes to a temp file then renames, so a racing reader
// never observes a partial entry.
func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

func adaptSplit(ctx context.Context, typ task.Type, split string, raw []byte) (*SplitData, error) {
	r := bytes.NewReader(raw)

	switch typ {
	case task.Retrieval:
		data, err := adaptRetrieval(ctx, split, r)
		if err != nil {
			return nil, err
		}
		return &SplitData{Retrieval: data}, nil

	case task.Classification:
		type row struct {
			ID    string `json:"id"`
			Text  string `json:"text"`
			Label string `json:"label"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]LabeledText, 0, len(rows))
		for i, rw := range rows {
			if strings.TrimSpace(rw.Text) == "" || strings.TrimSpace(rw.Label) == "" {
				return nil, fmt.Errorf("row %d: missing text or label", i+1)
			}
			out = append(out, LabeledText{ID: defaultID(rw.ID, split, i), Text: rw.Text, Label: rw.Label})
		}
		return &SplitData{Classification: out}, nil

	case task.Clustering:
		type row struct {
			ID      string `json:"id"`
			Text    string `json:"text"`
			Cluster *int   `json:"cluster"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]ClusteredText, 0, len(rows))
		for i, rw := range rows {
			if strings.TrimSpace(rw.Text) == "" || rw.Cluster == nil {
				return nil, fmt.Errorf("row %d: missing text or cluster", i+1)
			}
			out = append(out, ClusteredText{ID: defaultID(rw.ID, split, i), Text: rw.Text, Cluster: *rw.Cluster})
		}
		return &SplitData{Clustering: out}, nil

	case task.STS:
		type row struct {
			ID        string   `json:"id"`
			Sentence1 string   `json:"sentence1"`
			Sentence2 string   `json:"sentence2"`
			Score     *float64 `json:"score"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]ScoredPair, 0, len(rows))
		for i, rw := range rows {
			if rw.Sentence1 == "" || rw.Sentence2 == "" || rw.Score == nil {
				return nil, fmt.Errorf("row %d: missing sentence or score", i+1)
			}
			out = append(out, ScoredPair{
				ID:        defaultID(rw.ID, split, i),
				Sentence1: rw.Sentence1,
				Sentence2: rw.Sentence2,
				Score:     *rw.Score,
			})
		}
		return &SplitData{STS: out}, nil

	case task.Reranking:
		type candRow struct {
			ID       string `json:"id"`
			Text     string `json:"text"`
			Relevant bool   `json:"relevant"`
		}
		type row struct {
			ID         string    `json:"id"`
			Query      string    `json:"query"`
			Candidates []candRow `json:"candidates"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]RerankExample, 0, len(rows))
		for i, rw := range rows {
			if rw.Query == "" || len(rw.Candidates) == 0 {
				return nil, fmt.Errorf("row %d: missing query or candidates", i+1)
			}
			ex := RerankExample{ID: defaultID(rw.ID, split, i), Query: rw.Query}
			for j, c := range rw.Candidates {
				if c.Text == "" {
					return nil, fmt.Errorf("row %d candidate %d: missing text", i+1, j+1)
				}
				id := c.ID
				if id == "" {
					id = fmt.Sprintf("%s-c%d", ex.ID, j)
				}
				ex.Candidates = append(ex.Candidates, Candidate{ID: id, Text: c.Text, Relevant: c.Relevant})
			}
			out = append(out, ex)
		}
		return &SplitData{Reranking: out}, nil

	case task.BitextMining:
		type row struct {
			ID     string `json:"id"`
			Source string `json:"source"`
			Target string `json:"target"`
			Lang   string `json:"lang"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]BitextPair, 0, len(rows))
		for i, rw := range rows {
			if rw.Source == "" || rw.Target == "" {
				return nil, fmt.Errorf("row %d: missing source or target", i+1)
			}
			out = append(out, BitextPair{ID: defaultID(rw.ID, split, i), Source: rw.Source, Target: rw.Target, Lang: rw.Lang})
		}
		return &SplitData{Bitext: out}, nil

	case task.PairClassification:
		type row struct {
			ID        string `json:"id"`
			Sentence1 string `json:"sentence1"`
			Sentence2 string `json:"sentence2"`
			Label     *int   `json:"label"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]LabeledPair, 0, len(rows))
		for i, rw := range rows {
			if rw.Sentence1 == "" || rw.Sentence2 == "" || rw.Label == nil {
				return nil, fmt.Errorf("row %d: missing sentence or label", i+1)
			}
			out = append(out, LabeledPair{
				ID:        defaultID(rw.ID, split, i),
				Sentence1: rw.Sentence1,
				Sentence2: rw.Sentence2,
				Label:     *rw.Label != 0,
			})
		}
		return &SplitData{Pairs: out}, nil

	case task.Summarization:
		type row struct {
			ID          string    `json:"id"`
			Text        string    `json:"text"`
			Summaries   []string  `json:"summaries"`
			HumanScores []float64 `json:"human_scores"`
		}
		rows, err := decodeJSONL[row](ctx, r)
		if err != nil {
			return nil, err
		}
		out := make([]SummaryExample, 0, len(rows))
		for i, rw := range rows {
			if rw.Text == "" || len(rw.Summaries) == 0 || len(rw.Summaries) != len(rw.HumanScores) {
				return nil, fmt.Errorf("row %d: summaries and human_scores must be non-empty and equal length", i+1)
			}
			out = append(out, SummaryExample{
				ID:          defaultID(rw.ID, split, i),
				Text:        rw.Text,
				Summaries:   rw.Summaries,
				HumanScores: rw.HumanScores,
			})
		}
		return &SplitData{Summarization: out}, nil

	default:
		return nil, fmt.Errorf("unsupported task type %q", typ)
	}
}

func adaptRetrieval(ctx context.Context, split string, r io.Reader) (*RetrievalData, error) {
	type row struct {
		Kind      string `json:"kind"`
		ID        string `json:"id"`
		Text      string `json:"text"`
		QueryID   string `json:"query_id"`
		DocID     string `json:"doc_id"`
		Relevance int    `json:"relevance"`
	}

	rows, err := decodeJSONL[row](ctx, r)
	if err != nil {
		return nil, err
	}

	data := &RetrievalData{Qrels: make(map[string]map[string]int)}
	for i, rw := range rows {
		switch rw.Kind {
		case "query":
			if rw.ID == "" || rw.Text == "" {
				return nil, fmt.Errorf("row %d: query missing id or text", i+1)
			}
			data.Queries = append(data.Queries, Item{ID: rw.ID, Text: rw.Text})
		case "doc":
			if rw.ID == "" || rw.Text == "" {
				return nil, fmt.Errorf("row %d: doc missing id or text", i+1)
			}
			data.Corpus = append(data.Corpus, Item{ID: rw.ID, Text: rw.Text})
		case "qrel":
			if rw.QueryID == "" || rw.DocID == "" {
				return nil, fmt.Errorf("row %d: qrel missing query_id or doc_id", i+1)
			}
			m := data.Qrels[rw.QueryID]
			if m == nil {
				m = make(map[string]int)
				data.Qrels[rw.QueryID] = m
			}
			m[rw.DocID] = rw.Relevance
		default:
			return nil, fmt.Errorf("row %d: unknown kind %q", i+1, rw.Kind)
		}
	}

	if len(data.Queries) == 0 || len(data.Corpus) == 0 {
		return nil, fmt.Errorf("split %q: retrieval data needs queries and docs", split)
	}
	return data, nil
}

func containsSplit(splits []string, name string) bool {
	for _, s := range splits {
		if s == name {
			return true
		}
	}
	return false
}

func defaultID(id, split string, i int) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", split, i+1)
}
