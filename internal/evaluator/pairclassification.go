package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/metrics"
	"github.com/stellarlinkco/embench/internal/task"
)

// PairClassificationEvaluator scores binary pair labels from embedding
// similarity: average precision over the similarity ranking, plus accuracy
// at the best similarity threshold.
type PairClassificationEvaluator struct{}

func (PairClassificationEvaluator) Type() task.Type { return task.PairClassification }

func (PairClassificationEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	out := make([]dataset.Item, 0, 2*len(data.Pairs))
	for _, p := range data.Pairs {
		out = append(out,
			dataset.Item{ID: p.ID + ":1", Text: p.Sentence1},
			dataset.Item{ID: p.ID + ":2", Text: p.Sentence2},
		)
	}
	return out
}

func (PairClassificationEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	_ = seed
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || len(sd.Pairs) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no pair data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(sd.Pairs))
	labels := make([]bool, len(sd.Pairs))
	for i, p := range sd.Pairs {
		v1, err := vectorFor(emb, p.ID+":1")
		if err != nil {
			return nil, err
		}
		v2, err := vectorFor(emb, p.ID+":2")
		if err != nil {
			return nil, err
		}
		scores[i] = metrics.Cosine(v1, v2)
		labels[i] = p.Label
	}

	report := NewReport()
	report.Set("cosine_ap", metrics.AveragePrecision(scores, labels))
	report.Set("cosine_accuracy", bestThresholdAccuracy(scores, labels))
	return report, nil
}

// bestThresholdAccuracy sweeps every candidate cut between adjacent sorted
// similarities and returns the best achievable accuracy.
func bestThresholdAccuracy(scores []float64, labels []bool) float64 {
	if len(scores) == 0 {
		return 0
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	thresholds := make([]float64, 0, len(sorted)+1)
	thresholds = append(thresholds, sorted[0]-1)
	for i := 1; i < len(sorted); i++ {
		thresholds = append(thresholds, (sorted[i-1]+sorted[i])/2)
	}
	thresholds = append(thresholds, sorted[len(sorted)-1]+1)

	best := 0.0
	for _, th := range thresholds {
		correct := 0
		for i, s := range scores {
			if (s >= th) == labels[i] {
				correct++
			}
		}
		if acc := float64(correct) / float64(len(scores)); acc > best {
			best = acc
		}
	}
	return best
}
