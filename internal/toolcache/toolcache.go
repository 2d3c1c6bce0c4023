// Package toolcache detects and caches the external media tools'
// capabilities (spec.md §5 "Tool capability cache: read-mostly, rebuilt
// on startup or --refresh; writes via temp-file atomic rename").
// Generalizes the teacher's lazy-singleton hardware-encoder detection
// (internal/ffmpeg's AvailableEncoders) from a single-process in-memory
// cache into one that also persists across restarts, since this
// daemon's detection pass (ffmpeg/ffprobe presence, version, supported
// encoders) is more expensive to redo on every job than the teacher's
// interactive single-run CLI needed to care about.
package toolcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Capability describes one external tool's detected availability.
type Capability struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Version   string    `json:"version"`
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Cache holds detected tool capabilities, read-mostly once populated.
// The zero value is not usable; construct with New.
type Cache struct {
	path string

	mu       sync.RWMutex
	detected bool
	tools    map[string]Capability
}

// New constructs a Cache that persists to path (atomic rename on
// Refresh, per spec.md §5).
func New(path string) *Cache {
	return &Cache{path: path, tools: make(map[string]Capability)}
}

// Get returns a tool's cached capability and whether it was found.
// Callers should call Refresh or Load first; Get never probes.
func (c *Cache) Get(name string) (Capability, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	capability, ok := c.tools[name]
	return capability, ok
}

// Detected reports whether a detection pass has populated the cache
// (either via Load from disk or a live Refresh).
func (c *Cache) Detected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detected
}

// Load reads a previously persisted cache from disk. A missing file is
// not an error — the cache simply stays empty until Refresh runs.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("toolcache: read %s: %w", c.path, err)
	}

	var tools map[string]Capability
	if err := json.Unmarshal(data, &tools); err != nil {
		return fmt.Errorf("toolcache: parse %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.tools = tools
	c.detected = true
	c.mu.Unlock()
	return nil
}

// Refresh re-probes every named tool and persists the result atomically
// (temp file + rename, per spec.md §5), replacing the in-memory cache
// only after the probe pass completes.
func (c *Cache) Refresh(ctx context.Context, toolPaths map[string]string) error {
	tools := make(map[string]Capability, len(toolPaths))
	for name, path := range toolPaths {
		tools[name] = probe(ctx, name, path)
	}

	c.mu.Lock()
	c.tools = tools
	c.detected = true
	c.mu.Unlock()

	return c.persist(tools)
}

func (c *Cache) persist(tools map[string]Capability) error {
	data, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return fmt.Errorf("toolcache: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("toolcache: mkdir: %w", err)
	}
	if err := renameio.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("toolcache: atomic write %s: %w", c.path, err)
	}
	return nil
}

// probe runs `<path> -version` and parses the first line for a version
// token, mirroring the teacher's "detect once, cache result" approach to
// hardware-encoder probing but for whole-tool presence/version.
func probe(ctx context.Context, name, path string) Capability {
	result := Capability{Name: name, Path: path, DetectedAt: time.Now()}

	resolved, err := exec.LookPath(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Path = resolved

	out, err := exec.CommandContext(ctx, resolved, "-version").Output()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Available = true
	if line, _, ok := strings.Cut(string(out), "\n"); ok {
		result.Version = strings.TrimSpace(line)
	}
	return result
}
