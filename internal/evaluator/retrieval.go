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

// rankCutoffs are the k values reported for every rank metric.
var rankCutoffs = []int{1, 3, 5, 10}

// RetrievalEvaluator ranks the corpus by cosine similarity for each query
// and scores the ranking against relevance judgments. Exact similarity ties
// keep original corpus order.
type RetrievalEvaluator struct{}

func (RetrievalEvaluator) Type() task.Type { return task.Retrieval }

func (RetrievalEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil || data.Retrieval == nil {
		return nil
	}
	out := make([]dataset.Item, 0, len(data.Retrieval.Queries)+len(data.Retrieval.Corpus))
	for _, q := range data.Retrieval.Queries {
		out = append(out, dataset.Item{ID: "q:" + q.ID, Text: q.Text})
	}
	for _, d := range data.Retrieval.Corpus {
		out = append(out, dataset.Item{ID: "d:" + d.ID, Text: d.Text})
	}
	return out
}

func (RetrievalEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	_ = seed
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || sd.Retrieval == nil {
		return nil, fmt.Errorf("evaluator: split %q has no retrieval data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	rd := sd.Retrieval
	docVecs := make([][]float32, len(rd.Corpus))
	for i, doc := range rd.Corpus {
		v, err := vectorFor(emb, "d:"+doc.ID)
		if err != nil {
			return nil, err
		}
		docVecs[i] = v
	}

	sums := make(map[string]float64)
	queries := 0

	for _, q := range rd.Queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		qrels := rd.Qrels[q.ID]
		if len(qrels) == 0 {
			continue
		}

		qv, err := vectorFor(emb, "q:"+q.ID)
		if err != nil {
			return nil, err
		}

		ranking := rankCorpus(qv, rd.Corpus, docVecs)
		queries++

		for _, k := range rankCutoffs {
			sums[fmt.Sprintf("ndcg_at_%d", k)] += metrics.NDCGAtK(ranking, qrels, k)
			sums[fmt.Sprintf("map_at_%d", k)] += metrics.MAPAtK(ranking, qrels, k)
			sums[fmt.Sprintf("recall_at_%d", k)] += metrics.RecallAtK(ranking, qrels, k)
			sums[fmt.Sprintf("precision_at_%d", k)] += metrics.PrecisionAtK(ranking, qrels, k)
		}
		sums["mrr"] += metrics.MRR(ranking, qrels)
	}

	if queries == 0 {
		return nil, errors.New("evaluator: no query has relevance judgments")
	}

	report := NewReport()
	for name, sum := range sums {
		report.Set(name, sum/float64(queries))
	}
	return report, nil
}

// rankCorpus orders corpus ids best-first by similarity to the query,
// stable by original corpus order on exact ties.
func rankCorpus(query []float32, corpus []dataset.Item, docVecs [][]float32) metrics.RankedList {
	scores := make([]float64, len(corpus))
	for i, dv := range docVecs {
		scores[i] = metrics.Cosine(query, dv)
	}

	idx := make([]int, len(corpus))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	out := make(metrics.RankedList, len(idx))
	for rank, i := range idx {
		out[rank] = corpus[i].ID
	}
	return out
}
