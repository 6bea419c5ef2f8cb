package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/metrics"
	"github.com/stellarlinkco/embench/internal/task"
)

// BitextMiningEvaluator retrieves the nearest target-language embedding for
// each source sentence and scores exact-match accuracy against the gold
// alignment.
type BitextMiningEvaluator struct{}

func (BitextMiningEvaluator) Type() task.Type { return task.BitextMining }

func (BitextMiningEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	out := make([]dataset.Item, 0, 2*len(data.Bitext))
	for _, p := range data.Bitext {
		out = append(out,
			dataset.Item{ID: "s:" + p.ID, Text: p.Source},
			dataset.Item{ID: "t:" + p.ID, Text: p.Target},
		)
	}
	return out
}

func (BitextMiningEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	_ = seed
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || len(sd.Bitext) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no bitext data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	srcVecs := make([][]float32, len(sd.Bitext))
	tgtVecs := make([][]float32, len(sd.Bitext))
	for i, p := range sd.Bitext {
		sv, err := vectorFor(emb, "s:"+p.ID)
		if err != nil {
			return nil, err
		}
		tv, err := vectorFor(emb, "t:"+p.ID)
		if err != nil {
			return nil, err
		}
		srcVecs[i] = sv
		tgtVecs[i] = tv
	}

	hit := make([]bool, len(sd.Bitext))
	rr := make([]float64, len(sd.Bitext))
	for i, sv := range srcVecs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := -1
		bestSim := 0.0
		goldRank := 0 // strictly closer targets push the gold rank down; ties go to the gold
		goldSim := metrics.Cosine(sv, tgtVecs[i])
		for j, tv := range tgtVecs {
			sim := metrics.Cosine(sv, tv)
			if best < 0 || sim > bestSim {
				best = j
				bestSim = sim
			}
			if j != i && sim > goldSim {
				goldRank++
			}
		}
		hit[i] = best == i
		rr[i] = 1 / float64(goldRank+1)
	}

	report := NewReport()
	report.Set("accuracy", meanHits(hit, func(int) bool { return true }))
	report.Set("mrr", meanVals(rr, func(int) bool { return true }))

	// Pairs tagged with a language pair also get per-language scores.
	langs := make(map[string]bool)
	for _, p := range sd.Bitext {
		if p.Lang != "" {
			langs[p.Lang] = true
		}
	}
	for lang := range langs {
		in := func(i int) bool { return sd.Bitext[i].Lang == lang }
		report.SetSubset(lang, "accuracy", meanHits(hit, in))
		report.SetSubset(lang, "mrr", meanVals(rr, in))
	}
	return report, nil
}

func meanHits(hit []bool, in func(int) bool) float64 {
	n, sum := 0, 0.0
	for i, h := range hit {
		if !in(i) {
			continue
		}
		n++
		if h {
			sum++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func meanVals(vals []float64, in func(int) bool) float64 {
	n, sum := 0, 0.0
	for i, v := range vals {
		if !in(i) {
			continue
		}
		n++
		sum += v
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
