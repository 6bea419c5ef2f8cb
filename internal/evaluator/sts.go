package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/metrics"
	"github.com/stellarlinkco/embench/internal/task"
)

// STSEvaluator scores pairwise embedding similarity against gold similarity
// judgments with Pearson and Spearman correlation, over cosine similarity
// and negated euclidean distance.
type STSEvaluator struct{}

func (STSEvaluator) Type() task.Type { return task.STS }

func (STSEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	out := make([]dataset.Item, 0, 2*len(data.STS))
	for _, p := range data.STS {
		out = append(out,
			dataset.Item{ID: p.ID + ":1", Text: p.Sentence1},
			dataset.Item{ID: p.ID + ":2", Text: p.Sentence2},
		)
	}
	return out
}

func (STSEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	_ = seed
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || len(sd.STS) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no sts data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	gold := make([]float64, len(sd.STS))
	cosSims := make([]float64, len(sd.STS))
	eucSims := make([]float64, len(sd.STS))
	for i, p := range sd.STS {
		v1, err := vectorFor(emb, p.ID+":1")
		if err != nil {
			return nil, err
		}
		v2, err := vectorFor(emb, p.ID+":2")
		if err != nil {
			return nil, err
		}
		gold[i] = p.Score
		cosSims[i] = metrics.Cosine(v1, v2)
		eucSims[i] = -metrics.Euclidean(v1, v2)
	}

	report := NewReport()
	setCorrelation(report, "cosine_pearson", metrics.Pearson, cosSims, gold)
	setCorrelation(report, "cosine_spearman", metrics.Spearman, cosSims, gold)
	setCorrelation(report, "euclidean_pearson", metrics.Pearson, eucSims, gold)
	setCorrelation(report, "euclidean_spearman", metrics.Spearman, eucSims, gold)
	return report, nil
}

// setCorrelation records a correlation value, or the failure reason when the
// input is degenerate, without failing the rest of the report.
func setCorrelation(r *Report, name string, corr func(x, y []float64) (float64, error), x, y []float64) {
	v, err := corr(x, y)
	if err != nil {
		r.Fail(name, err.Error())
		return
	}
	r.Set(name, v)
}
