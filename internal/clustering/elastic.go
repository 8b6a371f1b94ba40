package clustering

import (
	"math"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// elasticBarycenter clusters under an elastic (warping-tolerant) alignment
// distance, with a DBA-style barycenter as the cluster representative. Used
// when series may be phase-shifted relative to each other.
type elasticBarycenter struct{}

func (elasticBarycenter) Name() string { return models.AlgorithmElasticBarycenter }

func (elasticBarycenter) Distance(a, b []float64) float64 {
	return elasticDistance(a, b)
}

func (e elasticBarycenter) Fit(series []models.Series, k int) (*Assignment, error) {
	return lloyd(series, k, elasticDistance, barycenterCentroid)
}

// elasticDistance is the classic dynamic-alignment distance: the cost of the
// cheapest monotonic alignment path between the two sequences.
func elasticDistance(a, b []float64) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			d := a[i-1] - b[j-1]
			cost := d * d
			curr[j] = cost + math.Min(prev[j], math.Min(curr[j-1], prev[j-1]))
		}
		prev, curr = curr, prev
	}
	return math.Sqrt(prev[m])
}

// barycenterCentroid refines the representative by DBA: each member is
// aligned to the current barycenter along its optimal warping path, aligned
// values are accumulated per barycenter index, and the barycenter becomes
// their mean. The refinement itself iterates until stable or capped.
func barycenterCentroid(members [][]float64, current []float64) []float64 {
	barycenter := clone(current)
	if len(barycenter) == 0 {
		barycenter = meanCentroid(members, nil)
	}

	for iter := 0; iter < barycenterIterations; iter++ {
		sums := make([]float64, len(barycenter))
		counts := make([]float64, len(barycenter))

		for _, m := range members {
			for _, step := range alignmentPath(barycenter, m) {
				sums[step.i] += m[step.j]
				counts[step.i]++
			}
		}

		next := make([]float64, len(barycenter))
		moved := false
		for i := range next {
			if counts[i] == 0 {
				next[i] = barycenter[i]
				continue
			}
			next[i] = sums[i] / counts[i]
			if math.Abs(next[i]-barycenter[i]) > 1e-9 {
				moved = true
			}
		}
		barycenter = next
		if !moved {
			break
		}
	}
	return barycenter
}

type pathStep struct{ i, j int }

// alignmentPath computes the optimal warping path between a and b by full
// dynamic programming with backtracking.
func alignmentPath(a, b []float64) []pathStep {
	n, m := len(a), len(b)
	cost := make([][]float64, n+1)
	for i := range cost {
		cost[i] = make([]float64, m+1)
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}
	cost[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			d := a[i-1] - b[j-1]
			cost[i][j] = d*d + math.Min(cost[i-1][j], math.Min(cost[i][j-1], cost[i-1][j-1]))
		}
	}

	path := make([]pathStep, 0, n+m)
	i, j := n, m
	for i > 0 && j > 0 {
		path = append(path, pathStep{i - 1, j - 1})
		diag, up, left := cost[i-1][j-1], cost[i-1][j], cost[i][j-1]
		switch {
		case diag <= up && diag <= left:
			i--
			j--
		case up <= left:
			i--
		default:
			j--
		}
	}
	return path
}
