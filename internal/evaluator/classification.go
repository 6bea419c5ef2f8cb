package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/metrics"
	"github.com/stellarlinkco/embench/internal/task"
)

const (
	defaultNExperiments    = 5
	defaultSamplesPerLabel = 8
	trainSplitName         = "train"
)

// ClassificationEvaluator fits a kNN probe on embedded train examples and
// predicts the eval split. Few-shot robustness comes from repeating the fit
// over seeded subsamples of the train split and reporting mean and spread.
type ClassificationEvaluator struct{}

func (ClassificationEvaluator) Type() task.Type { return task.Classification }

func (ClassificationEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	out := make([]dataset.Item, 0, len(data.Classification))
	for _, ex := range data.Classification {
		out = append(out, dataset.Item{ID: ex.ID, Text: ex.Text})
	}
	return out
}

func (ClassificationEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}

	evalData := data[split]
	if evalData == nil || len(evalData.Classification) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no classification data", split)
	}
	trainData := data[trainSplitName]
	if trainData == nil || len(trainData.Classification) == 0 {
		return nil, errors.New("evaluator: classification needs a train split")
	}

	evalEmb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}
	trainEmb, err := splitVectors(vectors, trainSplitName)
	if err != nil {
		return nil, err
	}

	evalVecs := make([][]float32, len(evalData.Classification))
	gold := make([]string, len(evalData.Classification))
	for i, ex := range evalData.Classification {
		v, err := vectorFor(evalEmb, ex.ID)
		if err != nil {
			return nil, err
		}
		evalVecs[i] = v
		gold[i] = ex.Label
	}

	byLabel := make(map[string][]int)
	for i, ex := range trainData.Classification {
		byLabel[ex.Label] = append(byLabel[ex.Label], i)
	}
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	nExp := d.NExperiments
	if nExp <= 0 {
		nExp = defaultNExperiments
	}
	perLabel := d.SamplesPerLabel
	if perLabel <= 0 {
		perLabel = defaultSamplesPerLabel
	}

	accs := make([]float64, 0, nExp)
	f1s := make([]float64, 0, nExp)

	for exp := 0; exp < nExp; exp++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng := rand.New(rand.NewSource(seed + int64(exp)))

		var sampleVecs [][]float32
		var sampleLabels []string
		for _, label := range labels {
			idxs := byLabel[label]
			take := perLabel
			if take > len(idxs) {
				take = len(idxs)
			}
			for _, p := range rng.Perm(len(idxs))[:take] {
				i := idxs[p]
				ex := trainData.Classification[i]
				v, err := vectorFor(trainEmb, ex.ID)
				if err != nil {
					return nil, err
				}
				sampleVecs = append(sampleVecs, v)
				sampleLabels = append(sampleLabels, ex.Label)
			}
		}

		clf := metrics.NewKNNClassifier(d.KNN, sampleVecs, sampleLabels)
		pred := make([]string, len(evalVecs))
		for i, v := range evalVecs {
			pred[i] = clf.Predict(v)
		}
		accs = append(accs, metrics.Accuracy(gold, pred))
		f1s = append(f1s, metrics.MacroF1(gold, pred))
	}

	report := NewReport()
	report.Set("accuracy", mean(accs))
	report.Set("accuracy_std", std(accs))
	report.Set("f1", mean(f1s))
	return report, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func std(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
