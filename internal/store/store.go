package store

import (
	"context"
	"errors"
	"time"

	"github.com/gfmartins/crimecluster/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidTransition means a status update targeted a job that is not in
// the state the transition requires. The job is left untouched.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// SubmitJob inserts the job as pending unless a non-expired job with the
	// same fingerprint already exists, in which case that job is returned
	// unchanged. The bool reports whether a new row was created. Safe under
	// concurrent callers racing on one fingerprint: the partial unique index
	// guarantees exactly one winner and all racers observe it.
	SubmitJob(ctx context.Context, job *models.TrainingJob) (*models.TrainingJob, bool, error)

	GetJob(ctx context.Context, id uuid.UUID) (*models.TrainingJob, error)
	GetJobByFingerprint(ctx context.Context, fingerprint string) (*models.TrainingJob, error)

	// ClaimNextJob atomically moves the oldest pending job to processing and
	// returns it, or (nil, nil) when no pending job exists. The claim is a
	// single conditional update, so a second (misconfigured) worker can never
	// observe the same job as claimable.
	ClaimNextJob(ctx context.Context) (*models.TrainingJob, error)

	// CompleteJob and FailJob transition processing -> completed/failed; any
	// other current status yields ErrInvalidTransition.
	CompleteJob(ctx context.Context, id uuid.UUID, artifactID uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error

	// ExpireStaleJobs moves pending/processing jobs created before the cutoff
	// to expired and returns how many were swept. Terminal jobs are never
	// touched, so the sweep cannot race a completion write.
	ExpireStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)

	// Artifact store: append-only, artifacts are never mutated once written.
	SaveArtifact(ctx context.Context, artifact *models.ModelArtifact) error
	GetArtifact(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error)

	FetchOccurrences(ctx context.Context, scope OccurrenceScope) ([]models.Occurrence, error)
}

// OccurrenceScope selects the raw occurrence rows feeding one training run.
// Municipalities empty means all municipalities in the store.
type OccurrenceScope struct {
	Municipalities []int64
	CrimeID        int64
	StartYear      int
	StartMonth     int
	EndYear        int
	EndMonth       int
}
