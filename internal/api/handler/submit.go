// Package handler implements the HTTP boundary of the training subsystem.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gfmartins/crimecluster/internal/api/response"
	"github.com/gfmartins/crimecluster/internal/training"
	"github.com/gfmartins/crimecluster/pkg/models"
)

// TrainingService defines the façade interface the handlers depend on.
type TrainingService interface {
	Submit(ctx context.Context, params models.TrainingParams) (*models.TrainingJob, bool, error)
	GetJob(ctx context.Context, idOrFingerprint string) (*models.TrainingJob, error)
	JobStatus(ctx context.Context, jobID uuid.UUID) (string, error)
	Result(ctx context.Context, jobID uuid.UUID) (*models.ModelArtifact, error)
	Artifact(ctx context.Context, artifactID uuid.UUID) (*models.ModelArtifact, error)
}

type submitRequest struct {
	Municipalities []int64 `json:"municipalities"`
	CrimeID        int64   `json:"crime_id"`
	PeriodStart    string  `json:"period_start"`
	PeriodEnd      string  `json:"period_end"`
	Algorithm      string  `json:"algorithm"`
	KMin           int     `json:"k_min"`
	KMax           int     `json:"k_max"`

	// Pointer so an explicit 0 (exclude any series with a gap) is
	// distinguishable from an absent field, which gets the default.
	MissingThreshold *float64 `json:"missing_threshold"`
}

type jobResponse struct {
	ID           uuid.UUID             `json:"id"`
	Fingerprint  string                `json:"fingerprint"`
	Status       string                `json:"status"`
	Terminal     bool                  `json:"terminal"`
	Params       models.TrainingParams `json:"params"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	ArtifactID   *uuid.UUID            `json:"artifact_id,omitempty"`
	StartedAt    *string               `json:"started_at,omitempty"`
	CompletedAt  *string               `json:"completed_at,omitempty"`
	CreatedAt    string                `json:"created_at"`
	UpdatedAt    string                `json:"updated_at"`
}

func toJobResponse(j *models.TrainingJob) jobResponse {
	return jobResponse{
		ID:           j.ID,
		Fingerprint:  j.Fingerprint,
		Status:       j.Status,
		Terminal:     j.Terminal(),
		Params:       j.Params,
		ErrorMessage: j.ErrorMessage,
		ArtifactID:   j.ArtifactID,
		StartedAt:    formatTime(j.StartedAt),
		CompletedAt:  formatTime(j.CompletedAt),
		CreatedAt:    j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// NewSubmitModelHandler returns the http.HandlerFunc for POST /api/v1/models.
// Submission is non-blocking: the reply carries the job id to poll. A request
// whose parameters fingerprint to an existing live job answers 200 with that
// job instead of creating a duplicate.
func NewSubmitModelHandler(svc TrainingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		threshold := models.DefaultMissingThreshold
		if req.MissingThreshold != nil {
			threshold = *req.MissingThreshold
		}

		job, created, err := svc.Submit(r.Context(), models.TrainingParams{
			Municipalities:   req.Municipalities,
			CrimeID:          req.CrimeID,
			PeriodStart:      req.PeriodStart,
			PeriodEnd:        req.PeriodEnd,
			Algorithm:        req.Algorithm,
			KMin:             req.KMin,
			KMax:             req.KMax,
			MissingThreshold: threshold,
		})
		if err != nil {
			if errors.Is(err, training.ErrInvalidParameters) {
				response.Error(w, http.StatusUnprocessableEntity,
					"INVALID_PARAMETERS", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"STORAGE_FAILURE", "Could not record the training request", nil)
			return
		}

		if created {
			response.Accepted(w, toJobResponse(job))
			return
		}
		response.JSON(w, toJobResponse(job))
	}
}
