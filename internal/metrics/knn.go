package metrics

import "sort"

// KNNClassifier predicts labels by majority vote among the k nearest
// training vectors under cosine similarity.
type KNNClassifier struct {
	K       int
	vectors [][]float32
	labels  []string
}

// NewKNNClassifier builds a classifier over the given training set. k
// defaults to 3 when non-positive.
func NewKNNClassifier(k int, vectors [][]float32, labels []string) *KNNClassifier {
	if k <= 0 {
		k = 3
	}
	return &KNNClassifier{K: k, vectors: vectors, labels: labels}
}

// Predict returns the majority label among the k nearest neighbors.
// Vote ties break toward the label of the closer neighbor.
func (c *KNNClassifier) Predict(v []float32) string {
	if c == nil || len(c.vectors) == 0 {
		return ""
	}

	type neighbor struct {
		idx int
		sim float64
	}
	nn := make([]neighbor, len(c.vectors))
	for i, t := range c.vectors {
		nn[i] = neighbor{idx: i, sim: Cosine(v, t)}
	}
	sort.SliceStable(nn, func(a, b int) bool { return nn[a].sim > nn[b].sim })

	k := c.K
	if k > len(nn) {
		k = len(nn)
	}

	votes := make(map[string]int, k)
	for _, n := range nn[:k] {
		votes[c.labels[n.idx]]++
	}

	best := ""
	bestVotes := -1
	for _, n := range nn[:k] {
		l := c.labels[n.idx]
		if votes[l] > bestVotes {
			best = l
			bestVotes = votes[l]
		}
	}
	return best
}

// Accuracy computes the fraction of exact label matches.
func Accuracy(gold, pred []string) float64 {
	if len(gold) != len(pred) || len(gold) == 0 {
		return 0
	}
	hits := 0
	for i := range gold {
		if gold[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(gold))
}

// MacroF1 computes the unweighted mean of per-class F1 scores over the
// classes present in gold.
func MacroF1(gold, pred []string) float64 {
	if len(gold) != len(pred) || len(gold) == 0 {
		return 0
	}

	classes := make(map[string]struct{})
	for _, g := range gold {
		classes[g] = struct{}{}
	}

	var sum float64
	for class := range classes {
		var tp, fp, fn int
		for i := range gold {
			switch {
			case gold[i] == class && pred[i] == class:
				tp++
			case gold[i] != class && pred[i] == class:
				fp++
			case gold[i] == class && pred[i] != class:
				fn++
			}
		}
		if tp == 0 {
			continue
		}
		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(tp+fn)
		sum += 2 * precision * recall / (precision + recall)
	}
	return sum / float64(len(classes))
}
