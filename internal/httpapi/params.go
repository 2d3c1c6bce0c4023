package httpapi

import (
	"net/http"
	"strconv"

	"github.com/randomparity/vpo/internal/logger"
)

// checkQueryParams enforces spec.md §6.3 "unknown query parameters are
// rejected in strict mode, logged in lenient mode." Returns false (and
// has already written a 400) if the request should stop processing.
func (h *Handler) checkQueryParams(w http.ResponseWriter, r *http.Request, allowed map[string]bool) bool {
	for key := range r.URL.Query() {
		if allowed[key] {
			continue
		}
		if h.strictQueryParams {
			writeError(w, http.StatusBadRequest, "unknown query parameter: "+key)
			return false
		}
		logger.Warn("httpapi: ignoring unknown query parameter", "param", key, "path", r.URL.Path)
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
