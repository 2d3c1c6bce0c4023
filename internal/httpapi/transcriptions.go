package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

var transcriptionListParams = map[string]bool{
	"show_all": true, "limit": true, "offset": true,
}

// ListTranscriptions handles GET /api/transcriptions (spec.md §6.3
// "?show_all&limit&offset" — defaults to the needs-review subset).
func (h *Handler) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	if !h.checkQueryParams(w, r, transcriptionListParams) {
		return
	}

	showAll := r.URL.Query().Get("show_all") == "true"
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	rows, total, err := h.store.ListTranscriptions(showAll, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, page{Items: rows, Total: total, Limit: limit, Offset: offset})
}

// GetTranscription handles GET /api/transcriptions/{id}, where {id} is a
// track id.
func (h *Handler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	trackID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	result, err := h.store.GetTranscriptionResult(trackID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "transcription not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
