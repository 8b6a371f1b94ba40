package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gfmartins/crimecluster/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, fingerprint, params, status, error_message, artifact_id, started_at, completed_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.TrainingJob, error) {
	var j models.TrainingJob
	err := row.Scan(&j.ID, &j.Fingerprint, &j.Params, &j.Status, &j.ErrorMessage,
		&j.ArtifactID, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// --- Training Jobs ---

func (s *PostgresStore) SubmitJob(ctx context.Context, job *models.TrainingJob) (*models.TrainingJob, bool, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO training_jobs (id, fingerprint, params, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (fingerprint) WHERE status <> 'expired' DO NOTHING
		 RETURNING `+jobColumns,
		job.ID, job.Fingerprint, job.Params, models.JobStatusPending, job.CreatedAt, job.UpdatedAt)

	created, err := scanJob(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("submit job: %w", err)
	}

	// Conflict: another submission holds this fingerprint. Return its job.
	existing, err := s.GetJobByFingerprint(ctx, job.Fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("submit job: fetch existing: %w", err)
	}
	return existing, false, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.TrainingJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM training_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) GetJobByFingerprint(ctx context.Context, fingerprint string) (*models.TrainingJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM training_jobs
		 WHERE fingerprint = $1 AND status <> 'expired'
		 ORDER BY created_at DESC LIMIT 1`, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by fingerprint: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ClaimNextJob(ctx context.Context) (*models.TrainingJob, error) {
	// Single conditional read-modify-write: the subquery locks the oldest
	// pending row, SKIP LOCKED keeps a concurrent claimer from blocking on or
	// double-claiming it.
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE training_jobs
		 SET status = $1, started_at = NOW(), updated_at = NOW()
		 WHERE id = (
		   SELECT id FROM training_jobs
		   WHERE status = $2
		   ORDER BY created_at
		   LIMIT 1
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		models.JobStatusProcessing, models.JobStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id uuid.UUID, artifactID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE training_jobs
		 SET status = $2, artifact_id = $3, completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, models.JobStatusCompleted, artifactID, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, id, models.JobStatusCompleted)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE training_jobs
		 SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, models.JobStatusFailed, message, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, id, models.JobStatusFailed)
	}
	return nil
}

// transitionFailure distinguishes a missing job from one in the wrong state
// after a conditional update matched no row.
func (s *PostgresStore) transitionFailure(ctx context.Context, id uuid.UUID, target string) error {
	var current string
	err := s.pool.QueryRow(ctx, `SELECT status FROM training_jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

func (s *PostgresStore) ExpireStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx,
		`UPDATE training_jobs
		 SET status = $1, updated_at = NOW()
		 WHERE status IN ($2, $3) AND created_at <= $4`,
		models.JobStatusExpired, models.JobStatusPending, models.JobStatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Model Artifacts ---

func (s *PostgresStore) SaveArtifact(ctx context.Context, artifact *models.ModelArtifact) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO model_artifacts (id, job_id, payload, created_at)
		 VALUES ($1, $2, $3, $4)`,
		artifact.ID, artifact.JobID, artifact.Model, artifact.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArtifact(ctx context.Context, id uuid.UUID) (*models.ModelArtifact, error) {
	var a models.ModelArtifact
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, payload, created_at FROM model_artifacts WHERE id = $1`, id,
	).Scan(&a.ID, &a.JobID, &a.Model, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return &a, nil
}

// --- Occurrences ---

func (s *PostgresStore) FetchOccurrences(ctx context.Context, scope OccurrenceScope) ([]models.Occurrence, error) {
	// Compare month buckets as year*12+month to avoid per-row date
	// construction.
	start := scope.StartYear*12 + scope.StartMonth
	end := scope.EndYear*12 + scope.EndMonth

	query := `SELECT year, month, municipality_id, crime_id, count
	          FROM occurrences
	          WHERE crime_id = $1 AND (year * 12 + month) BETWEEN $2 AND $3`
	args := []any{scope.CrimeID, start, end}
	if len(scope.Municipalities) > 0 {
		query += ` AND municipality_id = ANY($4)`
		args = append(args, scope.Municipalities)
	}
	query += ` ORDER BY municipality_id, year, month`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []models.Occurrence
	for rows.Next() {
		var o models.Occurrence
		if err := rows.Scan(&o.Year, &o.Month, &o.MunicipalityID, &o.CrimeID, &o.Count); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occurrences = append(occurrences, o)
	}
	return occurrences, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
