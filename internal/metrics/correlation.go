package metrics

import (
	"errors"
	"math"
	"sort"
)

// ErrZeroVariance reports a degenerate input whose values are all identical,
// which makes a correlation coefficient undefined.
var ErrZeroVariance = errors.New("metrics: zero variance input")

// Pearson computes the Pearson correlation coefficient of two equal-length
// series. Either series having zero variance yields ErrZeroVariance.
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.New("metrics: length mismatch")
	}
	if len(x) < 2 {
		return 0, errors.New("metrics: need at least two points")
	}

	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var sxy, sxx, syy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, ErrZeroVariance
	}
	return sxy / math.Sqrt(sxx*syy), nil
}

// Spearman computes the Spearman rank correlation of two equal-length
// series, assigning average ranks to ties.
func Spearman(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.New("metrics: length mismatch")
	}
	return Pearson(rankValues(x), rankValues(y))
}

// rankValues maps each value to its 1-based rank, with tied values sharing
// the average of the ranks they span.
func rankValues(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	ranks := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2 // 1-based ranks i+1..j+1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}
