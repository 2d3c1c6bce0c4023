package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the chi mux for the HTTP contract surface (spec.md
// §6.3). Unknown query parameters are rejected when strictQueryParams is
// true or merely logged when it is false, per spec.md §6.3.
func NewRouter(h *Handler, strictQueryParams bool) http.Handler {
	h.strictQueryParams = strictQueryParams

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(httprate.Limit(
		120, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitedResponse),
	))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/library", h.ListLibrary)
		r.Get("/api/library/{id}", h.GetLibraryFile)

		r.Get("/api/transcriptions", h.ListTranscriptions)
		r.Get("/api/transcriptions/{id}", h.GetTranscription)

		r.Get("/api/jobs", h.ListJobs)
		r.Get("/api/jobs/stream", h.JobStream)
		r.Get("/api/jobs/{id}", h.GetJob)
		r.Get("/api/jobs/{id}/logs", h.GetJobLogs)

		r.Handle("/metrics", promhttp.Handler())
	})

	return r
}

func rateLimitedResponse(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}
