package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gfmartins/crimecluster/internal/store"
	"github.com/gfmartins/crimecluster/internal/training"
	"github.com/gfmartins/crimecluster/pkg/models"
)

// --- mock TrainingService ---

type mockService struct {
	submitFn    func(params models.TrainingParams) (*models.TrainingJob, bool, error)
	getJobFn    func(idOrFingerprint string) (*models.TrainingJob, error)
	jobStatusFn func(jobID uuid.UUID) (string, error)
	resultFn    func(jobID uuid.UUID) (*models.ModelArtifact, error)
	artifactFn  func(artifactID uuid.UUID) (*models.ModelArtifact, error)
}

func (m *mockService) Submit(ctx context.Context, params models.TrainingParams) (*models.TrainingJob, bool, error) {
	return m.submitFn(params)
}

func (m *mockService) GetJob(ctx context.Context, idOrFingerprint string) (*models.TrainingJob, error) {
	return m.getJobFn(idOrFingerprint)
}

func (m *mockService) JobStatus(ctx context.Context, jobID uuid.UUID) (string, error) {
	if m.jobStatusFn != nil {
		return m.jobStatusFn(jobID)
	}
	return "", errors.New("status unavailable")
}

func (m *mockService) Result(ctx context.Context, jobID uuid.UUID) (*models.ModelArtifact, error) {
	return m.resultFn(jobID)
}

func (m *mockService) Artifact(ctx context.Context, artifactID uuid.UUID) (*models.ModelArtifact, error) {
	return m.artifactFn(artifactID)
}

func sampleJob(status string) *models.TrainingJob {
	now := time.Now().UTC()
	return &models.TrainingJob{
		ID:          uuid.New(),
		Fingerprint: "abc123",
		Params: models.TrainingParams{
			CrimeID:     4,
			PeriodStart: "2020-01",
			PeriodEnd:   "2020-12",
			Algorithm:   models.AlgorithmCentroid,
			KMin:        2,
			KMax:        5,
		},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sampleArtifact(jobID uuid.UUID) *models.ModelArtifact {
	return &models.ModelArtifact{
		ID:    uuid.New(),
		JobID: jobID,
		Model: models.ClusterModel{
			Algorithm: models.AlgorithmCentroid,
			K:         3,
			Score:     0.55,
			Labels:    map[string]int{"10:4": 0},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// --- helpers ---

func testRouter(svc TrainingService) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/models", NewSubmitModelHandler(svc))
	r.Get("/api/v1/models/jobs/{jobID}", NewGetJobHandler(svc))
	r.Get("/api/v1/models/jobs/{jobID}/result", NewGetResultHandler(svc))
	r.Get("/api/v1/models/artifacts/{artifactID}", NewGetArtifactHandler(svc))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) map[string]any {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func parseErr(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Error.Code
}

// --- Submit ---

func TestSubmitModel_Accepted(t *testing.T) {
	job := sampleJob(models.JobStatusPending)
	svc := &mockService{submitFn: func(params models.TrainingParams) (*models.TrainingJob, bool, error) {
		if params.CrimeID != 4 {
			t.Errorf("expected crime_id 4, got %d", params.CrimeID)
		}
		return job, true, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", map[string]any{
		"crime_id":     4,
		"period_start": "2020-01",
		"period_end":   "2020-12",
		"algorithm":    "centroid",
	})

	data := parseData(t, rec, http.StatusAccepted)
	if data["id"] != job.ID.String() {
		t.Errorf("expected job id %s, got %v", job.ID, data["id"])
	}
	if data["status"] != models.JobStatusPending {
		t.Errorf("expected pending, got %v", data["status"])
	}
	if data["terminal"] != false {
		t.Errorf("expected terminal false, got %v", data["terminal"])
	}
}

func TestSubmitModel_DefaultsAbsentThreshold(t *testing.T) {
	job := sampleJob(models.JobStatusPending)
	svc := &mockService{submitFn: func(params models.TrainingParams) (*models.TrainingJob, bool, error) {
		if params.MissingThreshold != models.DefaultMissingThreshold {
			t.Errorf("expected default threshold %v, got %v",
				models.DefaultMissingThreshold, params.MissingThreshold)
		}
		return job, true, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", map[string]any{
		"crime_id": 4, "period_start": "2020-01", "period_end": "2020-12",
	})
	parseData(t, rec, http.StatusAccepted)
}

func TestSubmitModel_KeepsExplicitZeroThreshold(t *testing.T) {
	job := sampleJob(models.JobStatusPending)
	svc := &mockService{submitFn: func(params models.TrainingParams) (*models.TrainingJob, bool, error) {
		if params.MissingThreshold != 0 {
			t.Errorf("explicit threshold 0 rewritten to %v", params.MissingThreshold)
		}
		return job, true, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", map[string]any{
		"crime_id": 4, "period_start": "2020-01", "period_end": "2020-12",
		"missing_threshold": 0,
	})
	parseData(t, rec, http.StatusAccepted)
}

func TestSubmitModel_DedupReturnsExistingJob(t *testing.T) {
	job := sampleJob(models.JobStatusProcessing)
	svc := &mockService{submitFn: func(models.TrainingParams) (*models.TrainingJob, bool, error) {
		return job, false, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", map[string]any{
		"crime_id": 4, "period_start": "2020-01", "period_end": "2020-12",
	})

	data := parseData(t, rec, http.StatusOK)
	if data["id"] != job.ID.String() {
		t.Errorf("expected existing job id, got %v", data["id"])
	}
}

func TestSubmitModel_InvalidJSON(t *testing.T) {
	svc := &mockService{submitFn: func(models.TrainingParams) (*models.TrainingJob, bool, error) {
		t.Fatal("service must not be called for malformed JSON")
		return nil, false, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", "{not json")

	status, code := parseErr(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}

func TestSubmitModel_InvalidParameters(t *testing.T) {
	svc := &mockService{submitFn: func(models.TrainingParams) (*models.TrainingJob, bool, error) {
		return nil, false, training.ErrInvalidParameters
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", map[string]any{
		"crime_id": 0,
	})

	status, code := parseErr(t, rec)
	if status != http.StatusUnprocessableEntity || code != "INVALID_PARAMETERS" {
		t.Errorf("expected 422 INVALID_PARAMETERS, got %d %s", status, code)
	}
}

func TestSubmitModel_StorageFailure(t *testing.T) {
	svc := &mockService{submitFn: func(models.TrainingParams) (*models.TrainingJob, bool, error) {
		return nil, false, errors.New("connection refused")
	}}

	rec := doJSON(t, testRouter(svc), http.MethodPost, "/api/v1/models", map[string]any{
		"crime_id": 4, "period_start": "2020-01", "period_end": "2020-12",
	})

	status, code := parseErr(t, rec)
	if status != http.StatusInternalServerError || code != "STORAGE_FAILURE" {
		t.Errorf("expected 500 STORAGE_FAILURE, got %d %s", status, code)
	}
}

// --- Job lookup ---

func TestGetJob_ByID(t *testing.T) {
	job := sampleJob(models.JobStatusFailed)
	msg := "input not fittable at any K in range"
	job.ErrorMessage = &msg

	svc := &mockService{getJobFn: func(idOrFingerprint string) (*models.TrainingJob, error) {
		if idOrFingerprint != job.ID.String() {
			t.Errorf("expected lookup by %s, got %s", job.ID, idOrFingerprint)
		}
		return job, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+job.ID.String(), nil)

	data := parseData(t, rec, http.StatusOK)
	if data["status"] != models.JobStatusFailed {
		t.Errorf("expected failed, got %v", data["status"])
	}
	if data["terminal"] != true {
		t.Errorf("expected terminal true, got %v", data["terminal"])
	}
	if got, _ := data["error_message"].(string); !strings.Contains(got, "not fittable") {
		t.Errorf("expected failure message, got %v", data["error_message"])
	}
}

func TestGetJob_ByFingerprint(t *testing.T) {
	job := sampleJob(models.JobStatusPending)
	svc := &mockService{getJobFn: func(idOrFingerprint string) (*models.TrainingJob, error) {
		if idOrFingerprint != "abc123" {
			t.Errorf("expected fingerprint pass-through, got %q", idOrFingerprint)
		}
		return job, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/abc123", nil)
	parseData(t, rec, http.StatusOK)
}

func TestGetJob_CachedStatusAnswersPoll(t *testing.T) {
	jobID := uuid.New()
	svc := &mockService{
		jobStatusFn: func(id uuid.UUID) (string, error) {
			if id != jobID {
				t.Errorf("expected status lookup for %s, got %s", jobID, id)
			}
			return models.JobStatusProcessing, nil
		},
		getJobFn: func(string) (*models.TrainingJob, error) {
			t.Fatal("full row must not be loaded while the job is live")
			return nil, nil
		},
	}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+jobID.String(), nil)

	data := parseData(t, rec, http.StatusOK)
	if data["status"] != models.JobStatusProcessing {
		t.Errorf("expected processing, got %v", data["status"])
	}
	if data["terminal"] != false {
		t.Errorf("expected terminal false, got %v", data["terminal"])
	}
}

func TestGetJob_TerminalStatusLoadsFullRow(t *testing.T) {
	job := sampleJob(models.JobStatusCompleted)
	artifactID := uuid.New()
	job.ArtifactID = &artifactID

	svc := &mockService{
		jobStatusFn: func(uuid.UUID) (string, error) {
			return models.JobStatusCompleted, nil
		},
		getJobFn: func(idOrFingerprint string) (*models.TrainingJob, error) {
			return job, nil
		},
	}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+job.ID.String(), nil)

	data := parseData(t, rec, http.StatusOK)
	if data["artifact_id"] != artifactID.String() {
		t.Errorf("expected artifact_id %s, got %v", artifactID, data["artifact_id"])
	}
	if data["terminal"] != true {
		t.Errorf("expected terminal true, got %v", data["terminal"])
	}
}

func TestGetJob_StatusNotFound(t *testing.T) {
	svc := &mockService{
		jobStatusFn: func(uuid.UUID) (string, error) {
			return "", store.ErrNotFound
		},
		getJobFn: func(string) (*models.TrainingJob, error) {
			t.Fatal("full row must not be loaded for a missing job")
			return nil, nil
		},
	}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+uuid.NewString(), nil)

	status, code := parseErr(t, rec)
	if status != http.StatusNotFound || code != "JOB_NOT_FOUND" {
		t.Errorf("expected 404 JOB_NOT_FOUND, got %d %s", status, code)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	svc := &mockService{getJobFn: func(string) (*models.TrainingJob, error) {
		return nil, store.ErrNotFound
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+uuid.NewString(), nil)

	status, code := parseErr(t, rec)
	if status != http.StatusNotFound || code != "JOB_NOT_FOUND" {
		t.Errorf("expected 404 JOB_NOT_FOUND, got %d %s", status, code)
	}
}

// --- Result ---

func TestGetResult_Completed(t *testing.T) {
	jobID := uuid.New()
	artifact := sampleArtifact(jobID)
	svc := &mockService{resultFn: func(id uuid.UUID) (*models.ModelArtifact, error) {
		if id != jobID {
			t.Errorf("expected job id %s, got %s", jobID, id)
		}
		return artifact, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+jobID.String()+"/result", nil)

	data := parseData(t, rec, http.StatusOK)
	if data["job_id"] != jobID.String() {
		t.Errorf("expected job_id %s, got %v", jobID, data["job_id"])
	}
	model, ok := data["model"].(map[string]any)
	if !ok {
		t.Fatalf("expected model payload, got %v", data["model"])
	}
	if model["k"] != float64(3) {
		t.Errorf("expected k 3, got %v", model["k"])
	}
}

func TestGetResult_NotReady(t *testing.T) {
	svc := &mockService{resultFn: func(uuid.UUID) (*models.ModelArtifact, error) {
		return nil, training.ErrResultNotReady
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+uuid.NewString()+"/result", nil)

	status, code := parseErr(t, rec)
	if status != http.StatusConflict || code != "RESULT_NOT_READY" {
		t.Errorf("expected 409 RESULT_NOT_READY, got %d %s", status, code)
	}
}

func TestGetResult_InvalidJobID(t *testing.T) {
	svc := &mockService{resultFn: func(uuid.UUID) (*models.ModelArtifact, error) {
		t.Fatal("service must not be called for a malformed id")
		return nil, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/not-a-uuid/result", nil)

	status, code := parseErr(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}

func TestGetResult_JobMissing(t *testing.T) {
	svc := &mockService{resultFn: func(uuid.UUID) (*models.ModelArtifact, error) {
		return nil, store.ErrNotFound
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/jobs/"+uuid.NewString()+"/result", nil)

	status, code := parseErr(t, rec)
	if status != http.StatusNotFound || code != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", status, code)
	}
}

// --- Artifact ---

func TestGetArtifact(t *testing.T) {
	artifact := sampleArtifact(uuid.New())
	svc := &mockService{artifactFn: func(id uuid.UUID) (*models.ModelArtifact, error) {
		if id != artifact.ID {
			t.Errorf("expected artifact id %s, got %s", artifact.ID, id)
		}
		return artifact, nil
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/artifacts/"+artifact.ID.String(), nil)

	data := parseData(t, rec, http.StatusOK)
	if data["artifact_id"] != artifact.ID.String() {
		t.Errorf("expected artifact_id %s, got %v", artifact.ID, data["artifact_id"])
	}
}

func TestGetArtifact_NotFound(t *testing.T) {
	svc := &mockService{artifactFn: func(uuid.UUID) (*models.ModelArtifact, error) {
		return nil, store.ErrNotFound
	}}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/artifacts/"+uuid.NewString(), nil)

	status, code := parseErr(t, rec)
	if status != http.StatusNotFound || code != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", status, code)
	}
}

func TestGetArtifact_InvalidID(t *testing.T) {
	svc := &mockService{}

	rec := doJSON(t, testRouter(svc), http.MethodGet, "/api/v1/models/artifacts/42", nil)

	status, code := parseErr(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}
