// Package httpapi is the thin HTTP contract surface the core is reached
// through (spec.md §6.3): /health plus read-only library, transcription
// and job-query endpoints, and the job-progress SSE stream. It re-bases
// the teacher's raw http.ServeMux router (api/router.go, api/handler.go,
// api/sse.go) onto chi, since routing here needs per-route-group
// middleware (rate limiting, Basic auth) that a bare ServeMux has no
// clean way to express.
//
// This package is a contract surface, not a second copy of core logic:
// handlers translate HTTP queries into internal/catalog and
// internal/jobs calls and marshal the results, nothing more.
package httpapi

import (
	"sync"
	"time"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/config"
	"github.com/randomparity/vpo/internal/jobs"
	"github.com/randomparity/vpo/internal/scanner"
	"github.com/randomparity/vpo/internal/toolcache"
)

// Version is the build-time version string, overridable via -ldflags
// (e.g. -X github.com/randomparity/vpo/internal/httpapi.Version=1.2.3).
var Version = "dev"

// ConfigSource is the subset of *configwatch.Watcher the HTTP boundary
// needs: the live config snapshot, narrowed to an interface so handlers
// don't depend on the reload machinery itself.
type ConfigSource interface {
	Current() *config.Config
}

// Handler holds every collaborator the HTTP contract surface dispatches
// to. Construct with NewHandler; the zero value is not usable.
type Handler struct {
	store   *catalog.Store
	queue   *jobs.Queue
	scanner *scanner.Scanner
	cfg     ConfigSource
	tools   *toolcache.Cache

	startedAt time.Time

	strictQueryParams bool

	shutdownMu sync.RWMutex
	shutdown   bool

	recentErrMu sync.Mutex
	recentErrs  []string
}

// NewHandler constructs a Handler. scanner may be nil if the daemon
// doesn't expose manual rescans over HTTP in a given deployment.
func NewHandler(store *catalog.Store, queue *jobs.Queue, sc *scanner.Scanner, cfg ConfigSource, tools *toolcache.Cache) *Handler {
	return &Handler{
		store:     store,
		queue:     queue,
		scanner:   sc,
		cfg:       cfg,
		tools:     tools,
		startedAt: time.Now(),
	}
}

// MarkShuttingDown flips the health endpoint to report shutting_down, so
// a load balancer stops routing new requests during graceful drain.
func (h *Handler) MarkShuttingDown() {
	h.shutdownMu.Lock()
	h.shutdown = true
	h.shutdownMu.Unlock()
}

func (h *Handler) isShuttingDown() bool {
	h.shutdownMu.RLock()
	defer h.shutdownMu.RUnlock()
	return h.shutdown
}

// RecordError appends msg to the health endpoint's recent-errors ring
// (capped at 10, newest first).
func (h *Handler) RecordError(msg string) {
	h.recentErrMu.Lock()
	defer h.recentErrMu.Unlock()
	h.recentErrs = append([]string{msg}, h.recentErrs...)
	if len(h.recentErrs) > 10 {
		h.recentErrs = h.recentErrs[:10]
	}
}

func (h *Handler) recentErrors() []string {
	h.recentErrMu.Lock()
	defer h.recentErrMu.Unlock()
	return append([]string(nil), h.recentErrs...)
}
