package series

import (
	"sort"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// ScaleRobust applies a per-series robust transform: subtract the median,
// divide by the interquartile range. Crime counts have heavy-tailed seasonal
// spikes; median/IQR keeps a few outlier months from dominating distance
// computations the way mean/variance normalization would. A constant series
// (IQR of zero) is left unscaled. Input series are not mutated.
func ScaleRobust(in []models.Series) []models.Series {
	out := make([]models.Series, len(in))
	for i, s := range in {
		scaled := s
		scaled.Values = scaleValues(s.Values)
		out[i] = scaled
	}
	return out
}

func scaleValues(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(values) == 0 {
		return out
	}

	med := median(values)
	iqr := quantile(values, 0.75) - quantile(values, 0.25)
	if iqr == 0 {
		return out
	}
	for i, v := range out {
		out[i] = (v - med) / iqr
	}
	return out
}

func median(values []float64) float64 {
	return quantile(values, 0.5)
}

// quantile computes the q-th quantile with linear interpolation between
// order statistics.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
