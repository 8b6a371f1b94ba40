// Package clustering implements the interchangeable time-series clustering
// algorithms and the best-K model selector.
package clustering

import (
	"errors"
	"fmt"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// ErrUnfittable means no K in the requested range can produce a valid model,
// typically because too few series survived exclusion filtering.
var ErrUnfittable = errors.New("input not fittable at any K in range")

// ErrUnknownAlgorithm means the requested algorithm identifier is not one of
// the supported adapters.
var ErrUnknownAlgorithm = errors.New("unknown clustering algorithm")

const (
	// maxIterations caps the assignment/update loop of every adapter. A fit
	// that hits the cap still returns its last assignment, flagged
	// non-converged.
	maxIterations = 50

	// barycenterIterations caps the inner DBA refinement loop.
	barycenterIterations = 10

	// randomSeed fixes centroid initialization so identical requests train
	// identical models.
	randomSeed = 42
)

// Assignment is the output of a single fit at a fixed K.
type Assignment struct {
	Labels     map[string]int `json:"labels"`
	Centroids  [][]float64    `json:"centroids"`
	Converged  bool           `json:"converged"`
	Iterations int            `json:"iterations"`
}

// Algorithm is the capability every clustering adapter conforms to. Distance
// exposes the same notion of distance the fit uses, so model selection can
// score a fit consistently with how it was trained.
type Algorithm interface {
	Name() string
	Fit(series []models.Series, k int) (*Assignment, error)
	Distance(a, b []float64) float64
}

// New returns the adapter for the given algorithm identifier.
func New(name string) (Algorithm, error) {
	switch name {
	case models.AlgorithmCentroid:
		return euclideanKMeans{}, nil
	case models.AlgorithmElasticBarycenter:
		return elasticBarycenter{}, nil
	case models.AlgorithmShape:
		return shapeBased{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}
