package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gfmartins/crimecluster/internal/cache"
	"github.com/gfmartins/crimecluster/internal/clustering"
	"github.com/gfmartins/crimecluster/internal/series"
	"github.com/gfmartins/crimecluster/internal/store"
	"github.com/gfmartins/crimecluster/pkg/models"
	"github.com/google/uuid"
)

// ErrInvalidParameters marks a malformed or out-of-range request, rejected
// synchronously before any job row exists.
var ErrInvalidParameters = errors.New("invalid training parameters")

// ErrResultNotReady means the job exists but is not completed, so it has no
// artifact to serve yet (or ever, for failed and expired jobs).
var ErrResultNotReady = errors.New("job result not ready")

const jobStatusTTL = 30 * time.Minute

// Service is the request façade over the job record store.
type Service struct {
	store store.Store
	cache cache.Cache
}

// NewService creates a new Service.
func NewService(st store.Store, ca cache.Cache) *Service {
	return &Service{store: st, cache: ca}
}

// Validate checks a normalized parameter set against the ranges the pipeline
// can fit. All failures wrap ErrInvalidParameters.
func Validate(p models.TrainingParams) error {
	if p.CrimeID <= 0 {
		return fmt.Errorf("%w: crime_id is required", ErrInvalidParameters)
	}
	for _, id := range p.Municipalities {
		if id <= 0 {
			return fmt.Errorf("%w: municipality id %d out of range", ErrInvalidParameters, id)
		}
	}

	if _, err := clustering.New(p.Algorithm); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	startYear, startMonth, err := series.ParsePeriod(p.PeriodStart)
	if err != nil {
		return fmt.Errorf("%w: period_start: %v", ErrInvalidParameters, err)
	}
	endYear, endMonth, err := series.ParsePeriod(p.PeriodEnd)
	if err != nil {
		return fmt.Errorf("%w: period_end: %v", ErrInvalidParameters, err)
	}
	r := series.Range{StartYear: startYear, StartMonth: startMonth, EndYear: endYear, EndMonth: endMonth}
	if r.Len() < 2 {
		return fmt.Errorf("%w: period %s..%s spans fewer than 2 month buckets",
			ErrInvalidParameters, p.PeriodStart, p.PeriodEnd)
	}

	if p.KMin < 2 {
		return fmt.Errorf("%w: k_min must be at least 2, got %d", ErrInvalidParameters, p.KMin)
	}
	if p.KMax < p.KMin {
		return fmt.Errorf("%w: k_max %d below k_min %d", ErrInvalidParameters, p.KMax, p.KMin)
	}
	if len(p.Municipalities) > 0 && p.KMax >= len(p.Municipalities) {
		return fmt.Errorf("%w: k_max %d must be below the %d requested municipalities",
			ErrInvalidParameters, p.KMax, len(p.Municipalities))
	}

	// The negated form also rejects NaN, which would otherwise slip through
	// both comparisons.
	if !(p.MissingThreshold >= 0 && p.MissingThreshold <= 1) {
		return fmt.Errorf("%w: missing_threshold %g outside [0,1]", ErrInvalidParameters, p.MissingThreshold)
	}
	return nil
}

// Submit canonicalizes and validates params, then creates a pending job or
// returns the existing job holding the same fingerprint. The bool reports
// whether a new job was created.
func (s *Service) Submit(ctx context.Context, params models.TrainingParams) (*models.TrainingJob, bool, error) {
	normalized := Normalize(params)
	if err := Validate(normalized); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	job := &models.TrainingJob{
		ID:          uuid.New(),
		Fingerprint: Fingerprint(normalized),
		Params:      normalized,
		Status:      models.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, created, err := s.store.SubmitJob(ctx, job)
	if err != nil {
		return nil, false, fmt.Errorf("submitting job: %w", err)
	}
	// best effort; the store remains authoritative
	_ = s.cache.SetJobStatus(ctx, stored.ID, stored.Status, jobStatusTTL)
	return stored, created, nil
}

// GetJob resolves a job by id or by parameter fingerprint.
func (s *Service) GetJob(ctx context.Context, idOrFingerprint string) (*models.TrainingJob, error) {
	if id, err := uuid.Parse(idOrFingerprint); err == nil {
		return s.store.GetJob(ctx, id)
	}
	return s.store.GetJobByFingerprint(ctx, idOrFingerprint)
}

// JobStatus answers the cheap polling path: the cached status when fresh,
// falling back to the store.
func (s *Service) JobStatus(ctx context.Context, jobID uuid.UUID) (string, error) {
	if status, ok, err := s.cache.GetJobStatus(ctx, jobID); err == nil && ok {
		return status, nil
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

// Result loads the trained artifact of a completed job.
func (s *Service) Result(ctx context.Context, jobID uuid.UUID) (*models.ModelArtifact, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.ArtifactID == nil {
		return nil, fmt.Errorf("%w: job %s is %s", ErrResultNotReady, jobID, job.Status)
	}
	return s.store.GetArtifact(ctx, *job.ArtifactID)
}

// Artifact loads an artifact directly by reference.
func (s *Service) Artifact(ctx context.Context, artifactID uuid.UUID) (*models.ModelArtifact, error) {
	return s.store.GetArtifact(ctx, artifactID)
}
