package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// requireAuth enforces spec.md §6.6: "if an auth token is configured,
// all HTTP endpoints except /health require HTTP Basic with credentials
// whose password equals the token, constant-time compared." No token
// configured means the boundary is open (e.g. local/dev deployments
// behind their own reverse-proxy auth).
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.cfg.Current().AuthToken
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || !constantTimeEqual(password, token) {
			w.Header().Set("WWW-Authenticate", `Basic realm="vpo"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// constantTimeEqual compares two strings without leaking timing
// information about where they first differ, hashing both to a fixed
// length first so the comparison itself doesn't leak the length either.
func constantTimeEqual(a, b string) bool {
	ah := sha256.Sum256([]byte(a))
	bh := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ah[:], bh[:]) == 1
}
