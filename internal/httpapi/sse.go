package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/logger"
)

// JobStream handles GET /api/jobs/stream, pushing queue events to the
// client as Server-Sent Events (spec.md §6.3).
func (h *Handler) JobStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	eventCh := h.queue.Subscribe()
	defer h.queue.Unsubscribe(eventCh)

	jobs, _, err := h.store.ListJobsFiltered(catalog.JobFilter{Limit: 500})
	if err != nil {
		logger.Warn("httpapi: failed to load initial job snapshot for stream", "error", err)
	}
	stats, _ := h.queue.Stats()

	initial, _ := json.Marshal(map[string]any{"type": "init", "jobs": jobs, "stats": stats})
	fmt.Fprintf(w, "data: %s\n\n", initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
