package clustering

import (
	"fmt"
	"log/slog"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// Selection is the winning fit across a K range.
type Selection struct {
	Algorithm  string
	K          int
	Score      float64
	Assignment *Assignment
}

// SelectBestK fits the algorithm at every K in [kMin, kMax], scores each fit
// with the silhouette under the algorithm's own distance, and returns the
// best-scoring fit. Ties break toward the smaller K. K values the series
// count cannot support are skipped (the silhouette needs at least one
// cluster of size two, so usable K is capped at len(series)-1); if no K in
// the range is usable or every fit fails, the input is unfittable.
//
// A non-converged winning fit is kept and logged as a quality note, never
// treated as an error.
func SelectBestK(alg Algorithm, series []models.Series, kMin, kMax int) (*Selection, error) {
	n := len(series)
	if kMax > n-1 {
		kMax = n - 1
	}
	if kMin < 2 {
		kMin = 2
	}
	if kMin > kMax {
		return nil, fmt.Errorf("%w: %d usable series for K range starting at %d", ErrUnfittable, n, kMin)
	}

	var best *Selection
	for k := kMin; k <= kMax; k++ {
		assignment, err := alg.Fit(series, k)
		if err != nil {
			slog.Warn("fit failed", "algorithm", alg.Name(), "k", k, "error", err)
			continue
		}
		score := silhouetteScore(series, assignment.Labels, alg.Distance)
		slog.Info("fit scored",
			"algorithm", alg.Name(),
			"k", k,
			"score", score,
			"converged", assignment.Converged,
			"iterations", assignment.Iterations,
		)
		if best == nil || score > best.Score {
			best = &Selection{
				Algorithm:  alg.Name(),
				K:          k,
				Score:      score,
				Assignment: assignment,
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: every K in [%d,%d] failed", ErrUnfittable, kMin, kMax)
	}
	if !best.Assignment.Converged {
		slog.Warn("selected model did not converge",
			"algorithm", alg.Name(), "k", best.K, "iterations", best.Assignment.Iterations)
	}
	return best, nil
}
