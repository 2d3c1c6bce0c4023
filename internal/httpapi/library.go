package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/randomparity/vpo/internal/catalog"
)

var libraryListParams = map[string]bool{
	"status": true, "search": true, "resolution": true,
	"audio_lang": true, "subtitles": true, "limit": true, "offset": true,
}

// ListLibrary handles GET /api/library (spec.md §6.3
// "?status&search&resolution&audio_lang&subtitles&limit&offset").
func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	if !h.checkQueryParams(w, r, libraryListParams) {
		return
	}

	q := r.URL.Query()
	filter := catalog.FileFilter{
		Status:     q.Get("status"),
		Search:     q.Get("search"),
		Resolution: q.Get("resolution"),
		AudioLang:  q.Get("audio_lang"),
		Subtitles:  q.Get("subtitles"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}

	files, total, err := h.store.ListFilesFiltered(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, page{Items: files, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// libraryFileDetail is the GET /api/library/{id} response shape (spec.md
// §6.3 "file detail with tracks and transcription data").
type libraryFileDetail struct {
	File           any `json:"file"`
	Tracks         any `json:"tracks"`
	Transcriptions any `json:"transcriptions"`
}

// GetLibraryFile handles GET /api/library/{id}.
func (h *Handler) GetLibraryFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	file, err := h.store.GetFileByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if file == nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	tracks, err := h.store.GetTracks(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	transcriptions, err := h.store.TranscriptionResultsForFile(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, libraryFileDetail{File: file, Tracks: tracks, Transcriptions: transcriptions})
}
