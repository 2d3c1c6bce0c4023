// Package pluginbus is the synchronous, failure-isolated event bus plugins
// attach to (spec.md §4.12): a plugin declares the events it cares about,
// registers once at startup, and can be enabled/disabled at runtime
// without re-registering.
package pluginbus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/randomparity/vpo/internal/logger"
)

// Event names a bus event (spec.md §4.12).
type Event string

const (
	EventFileScanned            Event = "file.scanned"
	EventPolicyBeforeEvaluate   Event = "policy.before_evaluate"
	EventPolicyAfterEvaluate    Event = "policy.after_evaluate"
	EventPlanBeforeExecute      Event = "plan.before_execute"
	EventPlanAfterExecute       Event = "plan.after_execute"
	EventPlanExecutionFailed    Event = "plan.execution_failed"
	EventTranscriptionRequested Event = "transcription.requested"
)

// Manifest is what a plugin declares about itself (spec.md §4.12).
type Manifest struct {
	Name           string
	Version        string
	Events         []Event
	MinAPIVersion  int
	MaxAPIVersion  int
}

// Plugin is the contract every registered plugin implements. Handle is
// called once per subscribed event; a returned error is logged and does
// not stop dispatch to other plugins (fail-isolated, per spec.md §4.12).
type Plugin interface {
	Manifest() Manifest
	Handle(ctx context.Context, event Event, payload any) error
}

// LoadedPlugin is a registered plugin plus its runtime state.
type LoadedPlugin struct {
	Manifest Manifest
	Instance Plugin
	Enabled  bool
	LoadedAt time.Time
}

// CurrentAPIVersion is the event-bus API version this build implements;
// a plugin whose [MinAPIVersion, MaxAPIVersion] range excludes it is
// rejected at registration.
const CurrentAPIVersion = 1

// Bus is the plugin registry and dispatcher. Zero value is not usable;
// construct with New.
type Bus struct {
	mu      sync.RWMutex
	plugins map[string]*LoadedPlugin
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{plugins: make(map[string]*LoadedPlugin)}
}

// Register adds p to the bus, enabled by default. Returns an error if a
// plugin with the same name is already registered, or if p declares an
// API version range this build falls outside of.
func (b *Bus) Register(p Plugin) error {
	m := p.Manifest()
	if m.Name == "" {
		return fmt.Errorf("pluginbus: plugin manifest has no name")
	}
	if m.MinAPIVersion != 0 && CurrentAPIVersion < m.MinAPIVersion {
		return fmt.Errorf("pluginbus: plugin %q requires api version >= %d, have %d", m.Name, m.MinAPIVersion, CurrentAPIVersion)
	}
	if m.MaxAPIVersion != 0 && CurrentAPIVersion > m.MaxAPIVersion {
		return fmt.Errorf("pluginbus: plugin %q requires api version <= %d, have %d", m.Name, m.MaxAPIVersion, CurrentAPIVersion)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.plugins[m.Name]; exists {
		return fmt.Errorf("pluginbus: plugin %q is already registered", m.Name)
	}
	b.plugins[m.Name] = &LoadedPlugin{Manifest: m, Instance: p, Enabled: true, LoadedAt: time.Now()}
	return nil
}

// Enable turns a registered plugin back on without re-registering it.
func (b *Bus) Enable(name string) error {
	return b.setEnabled(name, true)
}

// Disable turns a registered plugin off; Dispatch skips it until Enable.
func (b *Bus) Disable(name string) error {
	return b.setEnabled(name, false)
}

func (b *Bus) setEnabled(name string, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	lp, ok := b.plugins[name]
	if !ok {
		return fmt.Errorf("pluginbus: plugin %q is not registered", name)
	}
	lp.Enabled = enabled
	return nil
}

// List returns every registered plugin, name-sorted.
func (b *Bus) List() []LoadedPlugin {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]LoadedPlugin, 0, len(b.plugins))
	for _, lp := range b.plugins {
		out = append(out, *lp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Dispatch synchronously calls Handle on every enabled plugin subscribed
// to event, in name order, catching both returned errors and panics so one
// misbehaving plugin can't block the others or the caller (spec.md §4.12
// "synchronous but failure-isolated dispatch").
func (b *Bus) Dispatch(ctx context.Context, event Event, payload any) {
	b.mu.RLock()
	var subscribed []*LoadedPlugin
	for _, lp := range b.plugins {
		if !lp.Enabled {
			continue
		}
		for _, e := range lp.Manifest.Events {
			if e == event {
				subscribed = append(subscribed, lp)
				break
			}
		}
	}
	b.mu.RUnlock()

	sort.Slice(subscribed, func(i, j int) bool { return subscribed[i].Manifest.Name < subscribed[j].Manifest.Name })

	for _, lp := range subscribed {
		b.invoke(ctx, lp, event, payload)
	}
}

func (b *Bus) invoke(ctx context.Context, lp *LoadedPlugin, event Event, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("pluginbus: plugin panicked", "plugin", lp.Manifest.Name, "event", event, "panic", r)
		}
	}()
	if err := lp.Instance.Handle(ctx, event, payload); err != nil {
		logger.Warn("pluginbus: plugin handler failed", "plugin", lp.Manifest.Name, "event", event, "error", err)
	}
}
