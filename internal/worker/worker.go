// Package worker runs the background training loop: it polls the job record
// store, claims pending jobs one at a time, and executes the series ->
// scaling -> model-selection pipeline.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gfmartins/crimecluster/internal/cache"
	"github.com/gfmartins/crimecluster/internal/clustering"
	"github.com/gfmartins/crimecluster/internal/config"
	"github.com/gfmartins/crimecluster/internal/series"
	"github.com/gfmartins/crimecluster/internal/store"
	"github.com/gfmartins/crimecluster/pkg/models"
	"github.com/google/uuid"
)

const jobStatusTTL = 30 * time.Minute

// Worker is the single-flight training loop. Exactly one instance is meant to
// run; the Redis worker lock enforces that, and the store's conditional claim
// update backs it up if two instances are started anyway.
type Worker struct {
	store store.Store
	cache cache.Cache
	cfg   config.WorkerConfig
	owner string
}

// New creates a Worker with a unique lock-owner identity.
func New(st store.Store, ca cache.Cache, cfg config.WorkerConfig) *Worker {
	return &Worker{
		store: st,
		cache: ca,
		cfg:   cfg,
		owner: uuid.NewString(),
	}
}

// Run blocks, polling for pending jobs at the configured interval until ctx
// is cancelled. Job processing is synchronous by design: clustering is
// CPU-bound, so a long fit holds up polling for its duration and jobs are
// processed strictly one at a time.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("worker started", "owner", w.owner, "poll_interval", w.cfg.PollInterval)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := w.cache.ReleaseWorkerLock(releaseCtx, w.owner); err != nil {
				slog.Warn("release worker lock", "error", err)
			}
			slog.Info("worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	held, err := w.cache.AcquireWorkerLock(ctx, w.owner, w.cfg.LockTTL)
	if err != nil {
		// Redis down: keep going, the conditional claim update in the store
		// still prevents double-claiming.
		slog.Warn("worker lock unavailable, proceeding on store guarantees", "error", err)
	} else if !held {
		return
	}

	job, err := w.store.ClaimNextJob(ctx)
	if err != nil {
		slog.Error("claim next job", "error", err)
		return
	}
	if job == nil {
		return
	}
	w.process(ctx, job)
}

// process runs the pipeline for one claimed job. Every pipeline error becomes
// a failed job with a human-readable message; nothing propagates back into
// the polling loop, so one bad job never stops the worker. There is no
// automatic retry: failures here are data or parameter problems that the same
// parameters would reproduce.
func (w *Worker) process(ctx context.Context, job *models.TrainingJob) {
	slog.Info("job claimed", "job_id", job.ID, "algorithm", job.Params.Algorithm)
	_ = w.cache.SetJobStatus(ctx, job.ID, models.JobStatusProcessing, jobStatusTTL)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in training pipeline", "job_id", job.ID, "error", r)
			w.fail(ctx, job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	model, err := w.train(ctx, job)
	if err != nil {
		slog.Warn("job failed", "job_id", job.ID, "error", err)
		w.fail(ctx, job.ID, err.Error())
		return
	}

	artifact := &models.ModelArtifact{
		ID:        uuid.New(),
		JobID:     job.ID,
		Model:     *model,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.store.SaveArtifact(ctx, artifact); err != nil {
		// Storage failure, not a data problem: leave the job processing so
		// the expiry sweep reclaims it instead of mislabeling it failed.
		slog.Error("save artifact", "job_id", job.ID, "error", err)
		return
	}
	if err := w.store.CompleteJob(ctx, job.ID, artifact.ID); err != nil {
		slog.Error("complete job", "job_id", job.ID, "error", err)
		return
	}
	_ = w.cache.SetJobStatus(ctx, job.ID, models.JobStatusCompleted, jobStatusTTL)
	slog.Info("job completed",
		"job_id", job.ID, "artifact_id", artifact.ID, "k", model.K, "score", model.Score)
}

func (w *Worker) fail(ctx context.Context, jobID uuid.UUID, message string) {
	if err := w.store.FailJob(ctx, jobID, message); err != nil {
		slog.Error("fail job", "job_id", jobID, "error", err)
		return
	}
	_ = w.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, jobStatusTTL)
}

// train executes Series Builder -> Scaler -> Model Selector for one job.
func (w *Worker) train(ctx context.Context, job *models.TrainingJob) (*models.ClusterModel, error) {
	p := job.Params

	startYear, startMonth, err := series.ParsePeriod(p.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("period_start: %w", err)
	}
	endYear, endMonth, err := series.ParsePeriod(p.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("period_end: %w", err)
	}
	r := series.Range{StartYear: startYear, StartMonth: startMonth, EndYear: endYear, EndMonth: endMonth}

	occurrences, err := w.store.FetchOccurrences(ctx, store.OccurrenceScope{
		Municipalities: p.Municipalities,
		CrimeID:        p.CrimeID,
		StartYear:      startYear,
		StartMonth:     startMonth,
		EndYear:        endYear,
		EndMonth:       endMonth,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching occurrences: %w", err)
	}

	built := series.Build(occurrences, r, p.MissingThreshold)
	slog.Info("series built",
		"job_id", job.ID, "usable", len(built.Series), "excluded", len(built.Excluded))
	if len(built.Series) == 0 {
		return nil, fmt.Errorf("%w: no usable series in scope", clustering.ErrUnfittable)
	}

	scaled := series.ScaleRobust(built.Series)

	alg, err := clustering.New(p.Algorithm)
	if err != nil {
		return nil, err
	}
	selection, err := clustering.SelectBestK(alg, scaled, p.KMin, p.KMax)
	if err != nil {
		return nil, err
	}

	return &models.ClusterModel{
		Algorithm:      selection.Algorithm,
		K:              selection.K,
		Score:          selection.Score,
		Labels:         selection.Assignment.Labels,
		Centroids:      selection.Assignment.Centroids,
		Converged:      selection.Assignment.Converged,
		ExcludedSeries: built.Excluded,
		Months:         built.Months,
		Params:         p,
		TrainedAt:      time.Now().UTC(),
	}, nil
}
