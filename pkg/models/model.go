package models

import (
	"time"

	"github.com/google/uuid"
)

// ClusterModel is the trained artifact of a completed job: the winning fit
// across the requested K range. Owned by its job once written, read-only
// thereafter.
type ClusterModel struct {
	Algorithm      string         `json:"algorithm"`
	K              int            `json:"k"`
	Score          float64        `json:"score"`
	Labels         map[string]int `json:"labels"`
	Centroids      [][]float64    `json:"centroids"`
	Converged      bool           `json:"converged"`
	ExcludedSeries []string       `json:"excluded_series,omitempty"`
	Months         []string       `json:"months"`
	Params         TrainingParams `json:"params"`
	TrainedAt      time.Time      `json:"trained_at"`
}

// ModelArtifact is the persisted, append-only record of a ClusterModel.
type ModelArtifact struct {
	ID        uuid.UUID    `db:"id"         json:"id"`
	JobID     uuid.UUID    `db:"job_id"     json:"job_id"`
	Model     ClusterModel `db:"payload"    json:"model"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
