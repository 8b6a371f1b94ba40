package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gfmartins/crimecluster/internal/api/response"
	"github.com/gfmartins/crimecluster/internal/store"
	"github.com/gfmartins/crimecluster/internal/training"
	"github.com/gfmartins/crimecluster/pkg/models"
)

type jobStatusResponse struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	Terminal bool      `json:"terminal"`
}

// NewGetJobHandler returns the http.HandlerFunc for
// GET /api/v1/models/jobs/{jobID}. The path segment accepts either a job id
// or a parameter fingerprint.
//
// While a job is still pending or processing, the poll is answered from the
// status cache with a slim body; the full row is only loaded once the job is
// terminal, when the caller needs the artifact reference or error message.
func NewGetJobHandler(svc TrainingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "jobID")

		if id, parseErr := uuid.Parse(ref); parseErr == nil {
			status, err := svc.JobStatus(r.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such training job", nil)
				return
			}
			if err == nil && !models.TerminalStatus(status) {
				response.JSON(w, jobStatusResponse{ID: id, Status: status, Terminal: false})
				return
			}
		}

		job, err := svc.GetJob(r.Context(), ref)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such training job", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"STORAGE_FAILURE", "Could not read the training job", nil)
			return
		}
		response.JSON(w, toJobResponse(job))
	}
}

type resultResponse struct {
	JobID    uuid.UUID           `json:"job_id"`
	Artifact uuid.UUID           `json:"artifact_id"`
	Model    models.ClusterModel `json:"model"`
}

// NewGetResultHandler returns the http.HandlerFunc for
// GET /api/v1/models/jobs/{jobID}/result.
func NewGetResultHandler(svc TrainingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		artifact, err := svc.Result(r.Context(), jobID)
		if err != nil {
			writeArtifactError(w, err)
			return
		}
		response.JSON(w, resultResponse{
			JobID:    artifact.JobID,
			Artifact: artifact.ID,
			Model:    artifact.Model,
		})
	}
}

// NewGetArtifactHandler returns the http.HandlerFunc for
// GET /api/v1/models/artifacts/{artifactID}.
func NewGetArtifactHandler(svc TrainingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifactID, err := uuid.Parse(chi.URLParam(r, "artifactID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artifactID must be a UUID", nil)
			return
		}

		artifact, err := svc.Artifact(r.Context(), artifactID)
		if err != nil {
			writeArtifactError(w, err)
			return
		}
		response.JSON(w, resultResponse{
			JobID:    artifact.JobID,
			Artifact: artifact.ID,
			Model:    artifact.Model,
		})
	}
}

func writeArtifactError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, training.ErrResultNotReady):
		response.Error(w, http.StatusConflict, "RESULT_NOT_READY", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "No such job or artifact", nil)
	default:
		response.Error(w, http.StatusInternalServerError,
			"STORAGE_FAILURE", "Could not read the artifact", nil)
	}
}
