package metrics

import "math"

// VMeasure computes the V-measure of a predicted partition against gold
// labels: the harmonic mean of homogeneity and completeness.
func VMeasure(gold, pred []int) float64 {
	h, c := homogeneityCompleteness(gold, pred)
	if h+c == 0 {
		return 0
	}
	return 2 * h * c / (h + c)
}

// NMI computes normalized mutual information between a predicted partition
// and gold labels, normalized by the arithmetic mean of the two entropies.
func NMI(gold, pred []int) float64 {
	if len(gold) != len(pred) || len(gold) == 0 {
		return 0
	}

	mi := mutualInformation(gold, pred)
	hg := entropy(gold)
	hp := entropy(pred)
	if hg == 0 && hp == 0 {
		return 1
	}
	mean := (hg + hp) / 2
	if mean == 0 {
		return 0
	}
	return mi / mean
}

func homogeneityCompleteness(gold, pred []int) (float64, float64) {
	if len(gold) != len(pred) || len(gold) == 0 {
		return 0, 0
	}

	hg := entropy(gold)
	hp := entropy(pred)
	mi := mutualInformation(gold, pred)

	h := 1.0
	if hg > 0 {
		h = mi / hg
	}
	c := 1.0
	if hp > 0 {
		c = mi / hp
	}
	return h, c
}

func entropy(labels []int) float64 {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	n := float64(len(labels))
	e := 0.0
	for _, c := range counts {
		p := float64(c) / n
		e -= p * math.Log(p)
	}
	return e
}

func mutualInformation(a, b []int) float64 {
	n := float64(len(a))
	joint := make(map[[2]int]int)
	ca := make(map[int]int)
	cb := make(map[int]int)
	for i := range a {
		joint[[2]int{a[i], b[i]}]++
		ca[a[i]]++
		cb[b[i]]++
	}

	mi := 0.0
	for pair, c := range joint {
		pxy := float64(c) / n
		px := float64(ca[pair[0]]) / n
		py := float64(cb[pair[1]]) / n
		mi += pxy * math.Log(pxy/(px*py))
	}
	if mi < 0 {
		mi = 0
	}
	return mi
}
