// Package configwatch implements the SIGHUP-like reload coordinator
// described in spec.md §4.14: watch the config file, re-read it on
// change, diff against the current snapshot, split changed fields into
// hot-reloadable and restart-required, apply the hot ones, and log every
// changed field with secrets redacted. Grounded on the pack's
// fsnotify-driven directory-watch-for-atomic-replace pattern
// (ManuGH-xg2g's internal/config/reload.go), adapted from zerolog to the
// teacher's slog-based logger and re-targeted at this daemon's Config
// shape instead of an immutable-snapshot holder.
package configwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/randomparity/vpo/internal/config"
	"github.com/randomparity/vpo/internal/logger"
)

// reloadTimeout bounds a single reload attempt (spec.md §4.14 "wrapped in
// a 30s timeout").
const reloadTimeout = 30 * time.Second

// debounceWindow coalesces the burst of fsnotify events a single editor
// save or atomic-replace tends to produce.
const debounceWindow = 500 * time.Millisecond

// secretFields are redacted in change logs regardless of classification.
var secretFields = map[string]bool{
	"auth_token":     true,
	"session_secret": true,
}

// Diff is one changed field between an old and new config.
type Diff struct {
	Field        string
	Old, New     string
	HotReloadable bool
}

// Applier is called with every hot-reloadable diff once a reload
// succeeds, so callers (the worker pool, the logger level, the scanner)
// can react without the coordinator knowing their internals.
type Applier func(cfg *config.Config, diffs []Diff)

// Watcher watches a config file and coordinates reloads.
type Watcher struct {
	path string

	mu      sync.RWMutex
	current *config.Config

	onReload Applier

	watcher *fsnotify.Watcher
}

// New constructs a Watcher holding initial as the current config.
// onReload, if non-nil, is invoked after every successful reload that
// changed at least one field, with the new config and the set of
// hot-reloadable diffs (which may be empty).
func New(path string, initial *config.Config, onReload Applier) *Watcher {
	return &Watcher{path: path, current: initial, onReload: onReload}
}

// Current returns the watcher's current config snapshot.
func (w *Watcher) Current() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching the config file's directory for changes (the
// directory, not the file itself, so atomic replace — temp file + rename
// — and recreate-on-save editors are both observed). Runs until ctx is
// cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatch: create watcher: %w", err)
	}
	w.watcher = fw

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("configwatch: watch %s: %w", dir, err)
	}

	logger.Info("configwatch: watching config file", "path", w.path)
	go w.loop(ctx)
	return nil
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	base := filepath.Base(w.path)
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				if err := w.Reload(ctx); err != nil {
					logger.Warn("configwatch: reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("configwatch: watcher error", "error", err)
		}
	}
}

// Reload re-reads the config file, diffs it against the current
// snapshot, and applies hot-reloadable changes. On any failure (parse
// error, timeout) the old config is preserved unchanged and the error is
// returned. Restart-required fields are logged but not applied.
func (w *Watcher) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	type loadResult struct {
		cfg *config.Config
		err error
	}
	resultCh := make(chan loadResult, 1)
	go func() {
		cfg, err := config.Load(w.path)
		resultCh <- loadResult{cfg, err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("configwatch: reload timed out after %s", reloadTimeout)
	case res := <-resultCh:
		if res.err != nil {
			return fmt.Errorf("configwatch: load failed, keeping previous config: %w", res.err)
		}

		w.mu.Lock()
		old := w.current
		w.current = res.cfg
		w.mu.Unlock()

		diffs := Classify(old, res.cfg)
		logChanges(diffs)

		hot := make([]Diff, 0, len(diffs))
		for _, d := range diffs {
			if d.HotReloadable {
				hot = append(hot, d)
			}
		}

		if w.onReload != nil && len(diffs) > 0 {
			w.onReload(res.cfg, hot)
		}

		if restartCount := len(diffs) - len(hot); restartCount > 0 {
			logger.Warn("configwatch: restart-required fields changed, will not take effect until restart", "count", restartCount)
		}

		return nil
	}
}

func logChanges(diffs []Diff) {
	for _, d := range diffs {
		old, newVal := d.Old, d.New
		if secretFields[d.Field] {
			old, newVal = redacted(old), redacted(newVal)
		}
		logger.Info("configwatch: field changed", "field", d.Field, "old", old, "new", newVal, "hot_reloadable", d.HotReloadable)
	}
}

func redacted(s string) string {
	if s == "" {
		return ""
	}
	return "***redacted***"
}
