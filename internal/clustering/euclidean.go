package clustering

import (
	"math"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// euclideanKMeans is the classic centroid algorithm on raw-sample distance.
// Fastest of the three; assumes series are phase-aligned.
type euclideanKMeans struct{}

func (euclideanKMeans) Name() string { return models.AlgorithmCentroid }

func (euclideanKMeans) Distance(a, b []float64) float64 {
	return euclideanDistance(a, b)
}

func (e euclideanKMeans) Fit(series []models.Series, k int) (*Assignment, error) {
	return lloyd(series, k, euclideanDistance, meanCentroid)
}

func euclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// meanCentroid is the pointwise mean of the members.
func meanCentroid(members [][]float64, _ []float64) []float64 {
	out := make([]float64, len(members[0]))
	for _, m := range members {
		for i, v := range m {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(members))
	}
	return out
}
