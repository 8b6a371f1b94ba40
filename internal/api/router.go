package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/gfmartins/crimecluster/internal/api/middleware"
	"github.com/gfmartins/crimecluster/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	SubmitModelHandler http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	GetResultHandler   http.HandlerFunc
	GetArtifactHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/models", orNotImplemented(deps.SubmitModelHandler))
		r.Get("/api/v1/models/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Get("/api/v1/models/jobs/{jobID}/result", orNotImplemented(deps.GetResultHandler))
		r.Get("/api/v1/models/artifacts/{artifactID}", orNotImplemented(deps.GetArtifactHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
