package transcription

import (
	"fmt"
	"sync"

	"github.com/randomparity/vpo/internal/logger"
)

// Registry is the process-wide, lazily-populated set of loaded
// transcription plugins (spec.md §4.4 "plugins are loaded lazily").
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns an empty plugin registry. Tests instantiate their
// own private copy rather than sharing the process-wide singleton
// (spec.md §9 "Global mutable state... tests instantiate private copies").
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin, failing open if loader returns an error — a
// missing dependency (e.g. an unavailable model binary) must not crash
// startup, it just means the plugin is not registered.
func (r *Registry) Register(load func() (Plugin, error)) {
	p, err := load()
	if err != nil {
		logger.Warn("transcription plugin failed to load, skipping", "error", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[p.Name()]; exists {
		logger.Warn("transcription plugin already registered, ignoring duplicate", "name", p.Name())
		return
	}
	r.plugins[p.Name()] = p
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// First returns any registered plugin supporting the named feature, or
// an error if none is available.
func (r *Registry) First(feature string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if p.SupportsFeature(feature) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("transcription: no registered plugin supports %q", feature)
}
