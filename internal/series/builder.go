// Package series assembles and normalizes per-municipality crime time series
// from raw occurrence rows.
package series

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gfmartins/crimecluster/pkg/models"
)

// Range is an inclusive month-bucket range.
type Range struct {
	StartYear  int
	StartMonth int
	EndYear    int
	EndMonth   int
}

// ParsePeriod parses a "YYYY-MM" bucket label. An unpadded month ("2020-7")
// is accepted; anything beyond the two numeric fields is rejected.
func ParsePeriod(s string) (year, month int, err error) {
	y, m, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	year, err = strconv.Atoi(y)
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	month, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return year, month, nil
}

// Len returns the number of month buckets in the range, or 0 when the range
// is inverted.
func (r Range) Len() int {
	n := (r.EndYear-r.StartYear)*12 + (r.EndMonth - r.StartMonth) + 1
	if n < 0 {
		return 0
	}
	return n
}

// Months returns the ordered "YYYY-MM" labels of the shared time axis.
func (r Range) Months() []string {
	labels := make([]string, 0, r.Len())
	year, month := r.StartYear, r.StartMonth
	for i := 0; i < r.Len(); i++ {
		labels = append(labels, fmt.Sprintf("%04d-%02d", year, month))
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return labels
}

// index returns the axis position of (year, month), or -1 if outside the range.
func (r Range) index(year, month int) int {
	i := (year-r.StartYear)*12 + (month - r.StartMonth)
	if i < 0 || i >= r.Len() {
		return -1
	}
	return i
}

// BuildResult carries the usable series plus the exclusion report.
type BuildResult struct {
	Series   []models.Series
	Excluded []string
	Months   []string
}

// Build assembles one aligned series per (municipality, crime) pair from raw
// occurrence rows. Buckets with no row are missing (NaN), never zero-filled:
// zero is a valid observed count. A series whose missing fraction exceeds
// threshold is excluded and reported; surviving gaps are imputed with the
// series median so downstream distances stay defined.
func Build(occurrences []models.Occurrence, r Range, threshold float64) *BuildResult {
	n := r.Len()
	byKey := make(map[string]*models.Series)

	for _, o := range occurrences {
		i := r.index(o.Year, o.Month)
		if i < 0 {
			continue
		}
		key := models.SeriesKey(o.MunicipalityID, o.CrimeID)
		s, ok := byKey[key]
		if !ok {
			values := make([]float64, n)
			for j := range values {
				values[j] = math.NaN()
			}
			s = &models.Series{
				Key:            key,
				MunicipalityID: o.MunicipalityID,
				CrimeID:        o.CrimeID,
				Values:         values,
			}
			byKey[key] = s
		}
		if math.IsNaN(s.Values[i]) {
			s.Values[i] = float64(o.Count)
		} else {
			s.Values[i] += float64(o.Count)
		}
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := &BuildResult{Months: r.Months()}
	for _, key := range keys {
		s := byKey[key]
		if missingFraction(s.Values) > threshold {
			result.Excluded = append(result.Excluded, key)
			continue
		}
		imputeMissing(s.Values)
		result.Series = append(result.Series, *s)
	}
	return result
}

func missingFraction(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	missing := 0
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
		}
	}
	return float64(missing) / float64(len(values))
}

// imputeMissing replaces NaN buckets with the median of the observed values.
func imputeMissing(values []float64) {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return
	}
	m := median(observed)
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = m
		}
	}
}
