// Package mock provides an in-memory Store for tests that exercise the
// worker and the training façade without a database. Semantics mirror the
// Postgres implementation: fingerprint dedup over non-expired jobs,
// oldest-first claiming, conditional status transitions.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gfmartins/crimecluster/internal/store"
	"github.com/gfmartins/crimecluster/pkg/models"
	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*models.TrainingJob
	artifacts   map[uuid.UUID]*models.ModelArtifact
	occurrences []models.Occurrence

	// FetchErr, when set, is returned by FetchOccurrences to simulate a
	// storage failure mid-pipeline.
	FetchErr error
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		jobs:      make(map[uuid.UUID]*models.TrainingJob),
		artifacts: make(map[uuid.UUID]*models.ModelArtifact),
	}
}

func (s *Store) SeedOccurrences(rows []models.Occurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occurrences = append(s.occurrences, rows...)
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) SubmitJob(ctx context.Context, job *models.TrainingJob) (*models.TrainingJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.jobs {
		if existing.Fingerprint == job.Fingerprint && existing.Status != models.JobStatusExpired {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *job
	s.jobs[job.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) GetJobByFingerprint(ctx context.Context, fingerprint string) (*models.TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.Fingerprint == fingerprint && j.Status != models.JobStatusExpired {
			cp := *j
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ClaimNextJob(ctx context.Context) (*models.TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.TrainingJob
	for _, j := range s.jobs {
		if j.Status != models.JobStatusPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	oldest.Status = models.JobStatusProcessing
	oldest.StartedAt = &now
	oldest.UpdatedAt = now
	cp := *oldest
	return &cp, nil
}

func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID, artifactID uuid.UUID) error {
	return s.transition(id, models.JobStatusCompleted, func(j *models.TrainingJob) {
		j.ArtifactID = &artifactID
	})
}

func (s *Store) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	return s.transition(id, models.JobStatusFailed, func(j *models.TrainingJob) {
		j.ErrorMessage = &message
	})
}

func (s *Store) transition(id uuid.UUID, target string, apply func(*models.TrainingJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.Status != models.JobStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, j.Status, target)
	}
	now := time.Now().UTC()
	j.Status = target
	j.CompletedAt = &now
	j.UpdatedAt = now
	apply(j)
	return nil
}

func (s *Store) ExpireStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var n int64
	for _, j := range s.jobs {
		if j.Status != models.JobStatusPending && j.Status != models.JobStatusProcessing {
			continue
		}
		if !j.CreatedAt.After(cutoff) {
			j.Status = models.JobStatusExpired
			j.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (s *Store) SaveArtifact(ctx context.Context, artifact *models.ModelArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artifacts[artifact.ID]; exists {
		return store.ErrDuplicateKey
	}
	cp := *artifact
	s.artifacts[artifact.ID] = &cp
	return nil
}

func (s *Store) GetArtifact(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) FetchOccurrences(ctx context.Context, scope store.OccurrenceScope) ([]models.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}

	wanted := make(map[int64]bool, len(scope.Municipalities))
	for _, id := range scope.Municipalities {
		wanted[id] = true
	}
	start := scope.StartYear*12 + scope.StartMonth
	end := scope.EndYear*12 + scope.EndMonth

	var out []models.Occurrence
	for _, o := range s.occurrences {
		if o.CrimeID != scope.CrimeID {
			continue
		}
		bucket := o.Year*12 + o.Month
		if bucket < start || bucket > end {
			continue
		}
		if len(wanted) > 0 && !wanted[o.MunicipalityID] {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
