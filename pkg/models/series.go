package models

import "fmt"

// Occurrence is one raw aggregated row from the relational store populated by
// the external ingestion pipeline: crime counts per municipality per month.
type Occurrence struct {
	Year           int   `db:"year"            json:"year"`
	Month          int   `db:"month"           json:"month"`
	MunicipalityID int64 `db:"municipality_id" json:"municipality_id"`
	CrimeID        int64 `db:"crime_id"        json:"crime_id"`
	Count          int64 `db:"count"           json:"count"`
}

// Series is a named numeric sequence for one (municipality, crime) pair,
// aligned on the shared month axis of its batch. Missing buckets carry NaN
// until imputation; zero is a valid observed count and is never used as a
// missing-value sentinel.
type Series struct {
	Key            string    `json:"key"`
	MunicipalityID int64     `json:"municipality_id"`
	CrimeID        int64     `json:"crime_id"`
	Values         []float64 `json:"values"`
}

// SeriesKey builds the stable identifier used for cluster labels.
func SeriesKey(municipalityID, crimeID int64) string {
	return fmt.Sprintf("%d:%d", municipalityID, crimeID)
}
