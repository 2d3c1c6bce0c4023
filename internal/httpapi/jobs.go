package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/randomparity/vpo/internal/catalog"
)

var jobListParams = map[string]bool{
	"status": true, "type": true, "since": true, "search": true,
	"sort": true, "order": true, "limit": true, "offset": true,
}

// ListJobs handles GET /api/jobs (spec.md §6.3
// "?status&type&since&search&sort&order&limit&offset").
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if !h.checkQueryParams(w, r, jobListParams) {
		return
	}

	q := r.URL.Query()
	filter := catalog.JobFilter{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Since:  q.Get("since"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	jobs, total, err := h.store.ListJobsFiltered(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, page{Items: jobs, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.queue.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

var jobLogParams = map[string]bool{"limit": true, "offset": true}

// GetJobLogs handles GET /api/jobs/{id}/logs, returning the job's
// operation history (spec.md §4.13 internal/catalog Operation rows).
func (h *Handler) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	if !h.checkQueryParams(w, r, jobLogParams) {
		return
	}

	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	ops, total, err := h.store.ListOperationsByJob(id, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, page{Items: ops, Total: total, Limit: limit, Offset: offset})
}
