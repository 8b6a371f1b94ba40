package clustering

import "github.com/gfmartins/crimecluster/pkg/models"

// silhouetteScore computes the mean silhouette coefficient of an assignment
// under dist, the same distance notion the fit used. Returns -1 when fewer
// than two clusters are populated (the score is undefined there, and -1 ranks
// the fit below any real one).
func silhouetteScore(series []models.Series, labels map[string]int, dist distanceFunc) float64 {
	n := len(series)
	if n < 2 {
		return -1
	}

	assigned := make([]int, n)
	clusterSizes := make(map[int]int)
	for i, s := range series {
		assigned[i] = labels[s.Key]
		clusterSizes[assigned[i]]++
	}
	if len(clusterSizes) < 2 {
		return -1
	}

	// pairwise distances, computed once; elastic and shape distances are the
	// expensive part of scoring
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := dist(series[i].Values, series[j].Values)
			d[i][j] = v
			d[j][i] = v
		}
	}

	total := 0.0
	for i := 0; i < n; i++ {
		own := assigned[i]
		if clusterSizes[own] == 1 {
			// singleton clusters score zero by convention
			continue
		}

		intra := 0.0
		interByCluster := make(map[int]float64)
		interCounts := make(map[int]int)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if assigned[j] == own {
				intra += d[i][j]
			} else {
				interByCluster[assigned[j]] += d[i][j]
				interCounts[assigned[j]]++
			}
		}

		a := intra / float64(clusterSizes[own]-1)
		b := -1.0
		for c, sum := range interByCluster {
			if mean := sum / float64(interCounts[c]); b < 0 || mean < b {
				b = mean
			}
		}

		max := a
		if b > max {
			max = b
		}
		if max > 0 {
			total += (b - a) / max
		}
	}
	return total / float64(n)
}
