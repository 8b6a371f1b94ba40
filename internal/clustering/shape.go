package clustering

import (
	"math"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// shapeBased clusters on a cross-correlation shape distance, invariant to
// scale and phase shift. Used when absolute magnitude matters less than the
// temporal shape of a series.
type shapeBased struct{}

func (shapeBased) Name() string { return models.AlgorithmShape }

func (shapeBased) Distance(a, b []float64) float64 {
	return shapeDistance(a, b)
}

func (s shapeBased) Fit(series []models.Series, k int) (*Assignment, error) {
	return lloyd(series, k, shapeDistance, shapeCentroid)
}

// shapeDistance is 1 minus the maximum normalized cross-correlation over all
// shifts: 0 for identical shapes, up to 2 for anti-correlated ones.
func shapeDistance(a, b []float64) float64 {
	ncc, _ := maxCrossCorrelation(a, b)
	return 1 - ncc
}

// maxCrossCorrelation returns the maximum coefficient-normalized
// cross-correlation between a and b and the shift at which it occurs.
func maxCrossCorrelation(a, b []float64) (float64, int) {
	normA := vectorNorm(a)
	normB := vectorNorm(b)
	if normA == 0 || normB == 0 {
		return 0, 0
	}

	n := len(a)
	best := math.Inf(-1)
	bestShift := 0
	for shift := -(n - 1); shift <= n-1; shift++ {
		dot := 0.0
		for i := 0; i < n; i++ {
			j := i + shift
			if j < 0 || j >= len(b) {
				continue
			}
			dot += a[i] * b[j]
		}
		if cc := dot / (normA * normB); cc > best {
			best = cc
			bestShift = shift
		}
	}
	return best, bestShift
}

// shapeCentroid is the shape-normalized average: every member is z-normalized
// and shifted to its best alignment against the current representative, the
// aligned series are averaged, and the average is z-normalized again.
func shapeCentroid(members [][]float64, current []float64) []float64 {
	ref := current
	if vectorNorm(ref) == 0 {
		ref = members[0]
	}
	ref = zNormalize(ref)

	n := len(members[0])
	sum := make([]float64, n)
	for _, m := range members {
		z := zNormalize(m)
		_, shift := maxCrossCorrelation(ref, z)
		for i := 0; i < n; i++ {
			j := i + shift
			if j >= 0 && j < n {
				sum[i] += z[j]
			}
		}
	}
	for i := range sum {
		sum[i] /= float64(len(members))
	}
	return zNormalize(sum)
}

func zNormalize(v []float64) []float64 {
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))

	variance := 0.0
	for _, x := range v {
		d := x - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(len(v)))

	out := make([]float64, len(v))
	if sd == 0 {
		return out
	}
	for i, x := range v {
		out[i] = (x - mean) / sd
	}
	return out
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
