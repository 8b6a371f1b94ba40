package clustering

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gfmartins/crimecluster/pkg/models"
)

type distanceFunc func(a, b []float64) float64

// centroidFunc recomputes one cluster representative from its members.
// current is the previous representative, which iterative updaters (DBA,
// shape extraction) refine rather than rebuild.
type centroidFunc func(members [][]float64, current []float64) []float64

// lloyd runs the shared assignment/update loop all three adapters are built
// on. Initialization is k-means++ style with a fixed seed. An empty cluster
// is reseeded with the point farthest from its assigned centroid.
func lloyd(series []models.Series, k int, dist distanceFunc, update centroidFunc) (*Assignment, error) {
	n := len(series)
	if k < 2 || k > n {
		return nil, fmt.Errorf("k=%d out of range for %d series", k, n)
	}

	points := make([][]float64, n)
	for i, s := range series {
		points[i] = s.Values
	}

	rng := rand.New(rand.NewSource(randomSeed))
	centroids := seedCentroids(points, k, dist, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	converged := false
	iterations := 0
	for iter := 0; iter < maxIterations; iter++ {
		iterations = iter + 1
		changed := false

		for i, p := range points {
			best := nearestCentroid(p, centroids, dist)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}

		for c := 0; c < k; c++ {
			members := make([][]float64, 0, n)
			for i, l := range labels {
				if l == c {
					members = append(members, points[i])
				}
			}
			if len(members) == 0 {
				centroids[c] = clone(farthestPoint(points, labels, centroids, dist))
				changed = true
				continue
			}
			centroids[c] = update(members, centroids[c])
		}

		if !changed {
			converged = true
			break
		}
	}

	labelsByKey := make(map[string]int, n)
	for i, s := range series {
		labelsByKey[s.Key] = labels[i]
	}
	return &Assignment{
		Labels:     labelsByKey,
		Centroids:  centroids,
		Converged:  converged,
		Iterations: iterations,
	}, nil
}

// seedCentroids picks k initial centroids: the first uniformly, the rest
// weighted by squared distance to the nearest chosen one (k-means++).
func seedCentroids(points [][]float64, k int, dist distanceFunc, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	for len(centroids) < k {
		weights := make([]float64, len(points))
		total := 0.0
		for i, p := range points {
			d := dist(p, centroids[nearestCentroid(p, centroids, dist)])
			weights[i] = d * d
			total += weights[i]
		}
		if total == 0 {
			// all remaining points coincide with a centroid
			centroids = append(centroids, clone(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		chosen := len(points) - 1
		for i, w := range weights {
			acc += w
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64, dist distanceFunc) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := dist(p, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// farthestPoint returns the point with the greatest distance to its assigned
// centroid, used to reseed an emptied cluster.
func farthestPoint(points [][]float64, labels []int, centroids [][]float64, dist distanceFunc) []float64 {
	worst := points[0]
	worstDist := -1.0
	for i, p := range points {
		if labels[i] < 0 {
			continue
		}
		if d := dist(p, centroids[labels[i]]); d > worstDist {
			worstDist = d
			worst = p
		}
	}
	return worst
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
