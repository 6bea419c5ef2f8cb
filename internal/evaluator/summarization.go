package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/metrics"
	"github.com/stellarlinkco/embench/internal/task"
)

// SummarizationEvaluator correlates embedding similarity between a reference
// text and its machine summaries with the human quality scores for those
// summaries, then averages the correlations across examples.
type SummarizationEvaluator struct{}

func (SummarizationEvaluator) Type() task.Type { return task.Summarization }

func (SummarizationEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	var out []dataset.Item
	for _, ex := range data.Summarization {
		out = append(out, dataset.Item{ID: "txt:" + ex.ID, Text: ex.Text})
		for j, s := range ex.Summaries {
			out = append(out, dataset.Item{ID: fmt.Sprintf("%s:s%d", ex.ID, j), Text: s})
		}
	}
	return out
}

func (SummarizationEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	_ = seed
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || len(sd.Summarization) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no summarization data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	var pearsons, spearmans []float64
	degenerate := 0
	for _, ex := range sd.Summarization {
		if len(ex.Summaries) != len(ex.HumanScores) {
			return nil, fmt.Errorf("evaluator: example %q has %d summaries but %d scores", ex.ID, len(ex.Summaries), len(ex.HumanScores))
		}
		tv, err := vectorFor(emb, "txt:"+ex.ID)
		if err != nil {
			return nil, err
		}
		sims := make([]float64, len(ex.Summaries))
		for j := range ex.Summaries {
			sv, err := vectorFor(emb, fmt.Sprintf("%s:s%d", ex.ID, j))
			if err != nil {
				return nil, err
			}
			sims[j] = metrics.Cosine(tv, sv)
		}

		// Single-summary examples and constant human scores carry no
		// ranking signal; skip them rather than fail the whole task.
		p, perr := metrics.Pearson(sims, ex.HumanScores)
		s, serr := metrics.Spearman(sims, ex.HumanScores)
		if perr != nil || serr != nil {
			degenerate++
			continue
		}
		pearsons = append(pearsons, p)
		spearmans = append(spearmans, s)
	}

	report := NewReport()
	if len(pearsons) == 0 {
		report.Fail("cosine_pearson", fmt.Sprintf("all %d examples degenerate", degenerate))
		report.Fail("cosine_spearman", fmt.Sprintf("all %d examples degenerate", degenerate))
		return report, nil
	}
	report.Set("cosine_pearson", mean(pearsons))
	report.Set("cosine_spearman", mean(spearmans))
	return report, nil
}
