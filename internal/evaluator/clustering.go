package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/stellarlinkco/embench/internal/dataset"
	"github.com/stellarlinkco/embench/internal/metrics"
	"github.com/stellarlinkco/embench/internal/task"
)

// ClusteringEvaluator partitions embeddings with seeded k-means, k fixed to
// the number of gold clusters, and scores the partition against the gold
// labels.
type ClusteringEvaluator struct{}

func (ClusteringEvaluator) Type() task.Type { return task.Clustering }

func (ClusteringEvaluator) Items(data *dataset.SplitData) []dataset.Item {
	if data == nil {
		return nil
	}
	out := make([]dataset.Item, 0, len(data.Clustering))
	for _, ex := range data.Clustering {
		out = append(out, dataset.Item{ID: ex.ID, Text: ex.Text})
	}
	return out
}

func (ClusteringEvaluator) Evaluate(ctx context.Context, d *task.Descriptor, data dataset.Data, vectors map[string]Embeddings, split string, seed int64) (*Report, error) {
	_ = d
	if ctx == nil {
		return nil, errors.New("evaluator: nil context")
	}
	sd := data[split]
	if sd == nil || len(sd.Clustering) == 0 {
		return nil, fmt.Errorf("evaluator: split %q has no clustering data", split)
	}
	emb, err := splitVectors(vectors, split)
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(sd.Clustering))
	gold := make([]int, len(sd.Clustering))
	clusters := make(map[int]struct{})
	for i, ex := range sd.Clustering {
		v, err := vectorFor(emb, ex.ID)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
		gold[i] = ex.Cluster
		clusters[ex.Cluster] = struct{}{}
	}

	rng := rand.New(rand.NewSource(seed))
	pred := metrics.KMeans(vecs, len(clusters), rng)

	report := NewReport()
	report.Set("v_measure", metrics.VMeasure(gold, pred))
	report.Set("nmi", metrics.NMI(gold, pred))
	return report, nil
}
