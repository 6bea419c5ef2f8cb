package metrics

import (
	"math"
	"math/rand"
)

const kmeansMaxIterations = 100

// KMeans partitions vectors into k clusters and returns one cluster index
// per input vector. Initialization picks k distinct seed points from the
// given source, so results are deterministic for a fixed seed. k is clamped
// to the number of vectors.
func KMeans(vectors [][]float32, k int, rng *rand.Rand) []int {
	n := len(vectors)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	centroids := make([][]float64, k)
	for i, p := range rng.Perm(n)[:k] {
		centroids[i] = toFloat64(vectors[p])
	}

	assign := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := 0
			bestDist := math.Inf(1)
			for c, cen := range centroids {
				d := sqDist(v, cen)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dims := len(vectors[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, v := range vectors {
			c := assign[i]
			counts[c]++
			for d := range v {
				sums[c][d] += float64(v[d])
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Re-seed an emptied cluster on a point drawn from rng so
				// the run stays deterministic.
				centroids[c] = toFloat64(vectors[rng.Intn(n)])
				continue
			}
			for d := range sums[c] {
				sums[c][d] /= float64(counts[c])
			}
			centroids[c] = sums[c]
		}
	}
	return assign
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func sqDist(v []float32, c []float64) float64 {
	if len(v) != len(c) {
		return math.Inf(1)
	}
	var sum float64
	for i := range v {
		d := float64(v[i]) - c[i]
		sum += d * d
	}
	return sum
}
