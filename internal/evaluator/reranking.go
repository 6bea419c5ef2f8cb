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

// RerankingEvaluator re-orders each query's candidate list by embedding
// similarity and scores the ordering with the retrieval rank metrics,
// restricted to the provided candidates.
type RerankingEvaluator struct{}

func (RerankingEvaluator) Type() task.Type { return task.Reranking }

func (RerankingEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	var out []dataset.Item
	for _, ex := range data.Reranking {
		out = append(out, dataset.Item{ID: "q:" + ex.ID, Text: ex.Query})
		for _, c := range ex.Candidates {
			out = append(out, dataset.Item{ID: "c:" + c.ID, Text: c.Text})
		}
	}
	return out
}

func (RerankingEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	_ = seed
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || len(sd.Reranking) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no reranking data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	var sumMAP, sumMRR, sumNDCG float64
	scored := 0

	for _, ex := range sd.Reranking {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		qv, err := vectorFor(emb, "q:"+ex.ID)
		if err != nil {
			return nil, err
		}

		qrels := make(map[string]int, len(ex.Candidates))
		hasPositive := false
		scores := make([]float64, len(ex.Candidates))
		for i, c := range ex.Candidates {
			cv, err := vectorFor(emb, "c:"+c.ID)
			if err != nil {
				return nil, err
			}
			scores[i] = metrics.Cosine(qv, cv)
			if c.Relevant {
				qrels[c.ID] = 1
				hasPositive = true
			}
		}
		if !hasPositive {
			continue
		}

		idx := make([]int, len(ex.Candidates))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

		ranking := make(metrics.RankedList, len(idx))
		for rank, i := range idx {
			ranking[rank] = ex.Candidates[i].ID
		}

		sumMAP += metrics.MAPAtK(ranking, qrels, len(ranking))
		sumMRR += metrics.MRR(ranking, qrels)
		sumNDCG += metrics.NDCGAtK(ranking, qrels, 10)
		scored++
	}

	if scored == 0 {
		return nil, errors.New("evaluator: no reranking example has a relevant candidate")
	}

	report := NewReport()
	report.Set("map", sumMAP/float64(scored))
	report.Set("mrr", sumMRR/float64(scored))
	report.Set("ndcg_at_10", sumNDCG/float64(scored))
	return report, nil
}
