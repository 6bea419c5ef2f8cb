package metrics

import (
	"math"
	"sort"
)

// RankedList is a list of document IDs ordered best-first.
type RankedList []string

// NDCGAtK computes normalized discounted cumulative gain at cutoff k using
// graded relevance judgments. Documents absent from qrels count as gain 0.
// Returns 0 when qrels holds no positive judgment.
func NDCGAtK(ranking RankedList, qrels map[string]int, k int) float64 {
	if k <= 0 || len(qrels) == 0 {
		return 0
	}

	dcg := 0.0
	for i, id := range ranking {
		if i >= k {
			break
		}
		rel := qrels[id]
		if rel <= 0 {
			continue
		}
		dcg += (math.Pow(2, float64(rel)) - 1) / math.Log2(float64(i)+2)
	}

	gains := make([]int, 0, len(qrels))
	for _, rel := range qrels {
		if rel > 0 {
			gains = append(gains, rel)
		}
	}
	if len(gains) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(gains)))

	idcg := 0.0
	for i, rel := range gains {
		if i >= k {
			break
		}
		idcg += (math.Pow(2, float64(rel)) - 1) / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// MAPAtK computes average precision at cutoff k, normalized by the total
// number of relevant documents.
func MAPAtK(ranking RankedList, qrels map[string]int, k int) float64 {
	total := 0
	for _, rel := range qrels {
		if rel > 0 {
			total++
		}
	}
	if k <= 0 || total == 0 {
		return 0
	}

	hits := 0
	sum := 0.0
	for i, id := range ranking {
		if i >= k {
			break
		}
		if qrels[id] > 0 {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(total)
}

// RecallAtK computes the fraction of relevant documents found in the top k.
func RecallAtK(ranking RankedList, qrels map[string]int, k int) float64 {
	total := 0
	for _, rel := range qrels {
		if rel > 0 {
			total++
		}
	}
	if k <= 0 || total == 0 {
		return 0
	}

	hits := 0
	for i, id := range ranking {
		if i >= k {
			break
		}
		if qrels[id] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(total)
}

// PrecisionAtK computes the fraction of the top k that is relevant.
func PrecisionAtK(ranking RankedList, qrels map[string]int, k int) float64 {
	if k <= 0 {
		return 0
	}

	hits := 0
	for i, id := range ranking {
		if i >= k {
			break
		}
		if qrels[id] > 0 {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// MRR computes the reciprocal rank of the first relevant document, or 0 when
// none appears in the ranking.
func MRR(ranking RankedList, qrels map[string]int) float64 {
	for i, id := range ranking {
		if qrels[id] > 0 {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecision computes average precision over scored pairs with binary
// labels: the mean of precision at each positive, scanning scores descending.
// Ties keep input order. Returns 0 when no pair is positive.
func AveragePrecision(scores []float64, labels []bool) float64 {
	if len(scores) != len(labels) || len(scores) == 0 {
		return 0
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	hits := 0
	sum := 0.0
	for rank, i := range idx {
		if labels[i] {
			hits++
			sum += float64(hits) / float64(rank+1)
		}
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}
