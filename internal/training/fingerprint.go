// Package training is the submission façade: it validates and canonicalizes
// training requests, fingerprints them for deduplication, and answers status
// and result queries.
package training

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gfmartins/crimecluster/internal/series"
	"github.com/gfmartins/crimecluster/pkg/models"
)

// Normalize returns the canonical form of a parameter set: defaults applied,
// municipality ids sorted and deduplicated, algorithm lower-cased, period
// labels zero-padded. Two requests meaning the same thing normalize to the
// same value, which is what makes the fingerprint a usable dedup key.
//
// MissingThreshold passes through untouched: zero is a meaningful value
// (exclude any series with a missing bucket), so an absent field must be
// resolved to the default before the params reach here.
func Normalize(p models.TrainingParams) models.TrainingParams {
	out := p
	out.Algorithm = strings.ToLower(strings.TrimSpace(p.Algorithm))
	if out.Algorithm == "" {
		out.Algorithm = models.AlgorithmCentroid
	}
	if out.KMin == 0 {
		out.KMin = models.DefaultKMin
	}
	if out.KMax == 0 {
		out.KMax = models.DefaultKMax
	}

	if len(p.Municipalities) > 0 {
		seen := make(map[int64]bool, len(p.Municipalities))
		ids := make([]int64, 0, len(p.Municipalities))
		for _, id := range p.Municipalities {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out.Municipalities = ids
	} else {
		out.Municipalities = nil
	}

	out.PeriodStart = normalizePeriod(p.PeriodStart)
	out.PeriodEnd = normalizePeriod(p.PeriodEnd)
	return out
}

// normalizePeriod zero-pads a parseable "YYYY-MM" label ("2019-5" and
// "2019-05" fingerprint identically); unparseable input is left for
// validation to reject.
func normalizePeriod(s string) string {
	year, month, err := series.ParsePeriod(strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Fingerprint computes the stable SHA-256 fingerprint of a normalized
// parameter set. JSON encoding of the struct is canonical here: field order
// follows the struct definition and number formatting is stable.
func Fingerprint(p models.TrainingParams) string {
	// Marshal cannot fail: TrainingParams is plain strings, integers and a
	// finite float, with no custom marshalers or cycles.
	canonical, _ := json.Marshal(Normalize(p))
	hash := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", hash)
}
