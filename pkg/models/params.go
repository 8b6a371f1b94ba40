package models

// Clustering algorithm identifiers accepted in training requests.
const (
	AlgorithmCentroid          = "centroid"
	AlgorithmElasticBarycenter = "elastic-barycenter"
	AlgorithmShape             = "shape"
)

// Default bounds applied when a request leaves them unset.
const (
	DefaultKMin             = 2
	DefaultKMax             = 15
	DefaultMissingThreshold = 0.5
)

// TrainingParams is the immutable parameter set of a training request.
// Municipalities empty means "all municipalities in scope". PeriodStart and
// PeriodEnd are inclusive "YYYY-MM" month buckets. The canonical form of this
// struct (sorted municipality ids, defaults applied) is what gets
// fingerprinted for deduplication.
type TrainingParams struct {
	Municipalities   []int64 `json:"municipalities,omitempty"`
	CrimeID          int64   `json:"crime_id"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	Algorithm        string  `json:"algorithm"`
	KMin             int     `json:"k_min"`
	KMax             int     `json:"k_max"`
	MissingThreshold float64 `json:"missing_threshold"`
}
