package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/randomparity/vpo/internal/config"
)

func TestClassifySplitsHotAndRestartRequired(t *testing.T) {
	old := config.DefaultConfig()
	newCfg := old.Clone()
	newCfg.LogLevel = "debug"
	newCfg.Port = 9090
	newCfg.Jobs.Workers = 8

	diffs := Classify(old, newCfg)

	byField := map[string]Diff{}
	for _, d := range diffs {
		byField[d.Field] = d
	}

	if d, ok := byField["log_level"]; !ok || !d.HotReloadable {
		t.Fatalf("expected log_level to be a hot-reloadable diff, got %+v", byField)
	}
	if d, ok := byField["jobs.workers"]; !ok || !d.HotReloadable {
		t.Fatalf("expected jobs.workers to be hot-reloadable, got %+v", byField)
	}
	if d, ok := byField["port"]; !ok || d.HotReloadable {
		t.Fatalf("expected port to be restart-required, got %+v", byField)
	}
}

func TestClassifyIgnoresUnchangedFields(t *testing.T) {
	old := config.DefaultConfig()
	newCfg := old.Clone()

	if diffs := Classify(old, newCfg); len(diffs) != 0 {
		t.Fatalf("expected no diffs between identical configs, got %+v", diffs)
	}
}

func TestReloadAppliesHotChangesAndPreservesRestartRequired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	initial := config.DefaultConfig()
	if err := initial.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	var appliedDiffs []Diff
	w := New(path, initial, func(cfg *config.Config, diffs []Diff) {
		appliedDiffs = diffs
	})

	updated := initial.Clone()
	updated.LogLevel = "debug"
	updated.Port = 9999
	if err := updated.Save(path); err != nil {
		t.Fatalf("save updated: %v", err)
	}

	if err := w.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if w.Current().LogLevel != "debug" {
		t.Fatalf("expected reloaded config to carry the new log level, got %q", w.Current().LogLevel)
	}
	if w.Current().Port != 9999 {
		t.Fatalf("expected reloaded config to carry the new port even though it's restart-required, got %d", w.Current().Port)
	}

	foundHot := false
	for _, d := range appliedDiffs {
		if d.Field == "log_level" {
			foundHot = true
		}
		if d.Field == "port" {
			t.Fatalf("port should not appear in the hot-applied diff set")
		}
	}
	if !foundHot {
		t.Fatalf("expected onReload to be called with the log_level hot diff, got %+v", appliedDiffs)
	}
}

func TestReloadPreservesOldConfigOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	initial := config.DefaultConfig()
	initial.LogLevel = "warn"
	if err := initial.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w := New(path, initial, nil)

	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("write invalid yaml: %v", err)
	}

	if err := w.Reload(context.Background()); err == nil {
		t.Fatal("expected reload to fail on invalid YAML")
	}
	if w.Current().LogLevel != "warn" {
		t.Fatalf("expected old config preserved after failed reload, got %q", w.Current().LogLevel)
	}
}

func TestWatcherPicksUpFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	initial := config.DefaultConfig()
	if err := initial.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := make(chan struct{}, 1)
	w := New(path, initial, func(cfg *config.Config, diffs []Diff) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	updated := initial.Clone()
	updated.LogLevel = "debug"
	time.Sleep(50 * time.Millisecond) // let the watcher attach before the write
	if err := updated.Save(path); err != nil {
		t.Fatalf("save updated: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("expected the file watcher to trigger a reload within 3s")
	}

	if w.Current().LogLevel != "debug" {
		t.Fatalf("expected watcher-triggered reload to pick up new log level, got %q", w.Current().LogLevel)
	}
}
