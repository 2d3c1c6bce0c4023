package httpapi

import (
	"net/http"
	"time"

	"github.com/randomparity/vpo/internal/catalog"
)

// healthResponse is the JSON body spec.md §6.3 names exactly:
// {status, database, uptime_seconds, version, shutting_down,
// jobs_queued, jobs_running, active_workers, recent_errors}.
type healthResponse struct {
	Status        string   `json:"status"`
	Database      string   `json:"database"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Version       string   `json:"version"`
	ShuttingDown  bool     `json:"shutting_down"`
	JobsQueued    int      `json:"jobs_queued"`
	JobsRunning   int      `json:"jobs_running"`
	ActiveWorkers int      `json:"active_workers"`
	RecentErrors  []string `json:"recent_errors"`
}

// Health handles GET /health (spec.md §6.3): 200 when the database is
// reachable and the process isn't draining, 503 otherwise. Unlike every
// other endpoint this one is never gated by auth.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "healthy",
		Database:      "ok",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Version:       Version,
		ShuttingDown:  h.isShuttingDown(),
		RecentErrors:  h.recentErrors(),
	}

	if _, _, err := h.store.ListFilesFiltered(catalog.FileFilter{Limit: 1}); err != nil {
		resp.Status = "degraded"
		resp.Database = "error: " + err.Error()
	}

	if stats, err := h.queue.Stats(); err == nil {
		resp.JobsQueued = stats.Queued
		resp.JobsRunning = stats.Running
		resp.ActiveWorkers = stats.Running
	} else {
		resp.Status = "degraded"
	}

	if resp.ShuttingDown {
		resp.Status = "degraded"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
