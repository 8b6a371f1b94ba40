package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusExpired    = "expired"
)

// TrainingJob tracks an async model-training request. The API returns a job id
// on POST /api/v1/models; the client polls GET /api/v1/models/jobs/{jobID}
// until status is completed, failed, or expired.
//
// Jobs are deduplicated by Fingerprint: two submissions with identical
// canonical parameters refer to the same job. ArtifactID is set iff status is
// completed; ErrorMessage is set iff status is failed.
type TrainingJob struct {
	ID           uuid.UUID      `db:"id"            json:"id"`
	Fingerprint  string         `db:"fingerprint"   json:"fingerprint"`
	Params       TrainingParams `db:"params"        json:"params"`
	Status       string         `db:"status"        json:"status"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	ArtifactID   *uuid.UUID     `db:"artifact_id"   json:"artifact_id,omitempty"`
	StartedAt    *time.Time     `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time     `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"    json:"updated_at"`
}

// Terminal reports whether the job can no longer change state.
func (j *TrainingJob) Terminal() bool {
	return TerminalStatus(j.Status)
}

// TerminalStatus reports whether a status value is final.
func TerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusExpired:
		return true
	}
	return false
}
