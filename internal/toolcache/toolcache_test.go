package toolcache

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRefreshDetectsAvailableTool(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "toolcache.json"))

	if err := c.Refresh(context.Background(), map[string]string{"sh": "sh"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got, ok := c.Get("sh")
	if !ok {
		t.Fatal("expected sh to be present in the cache")
	}
	if !got.Available {
		t.Fatalf("expected sh to be detected as available, got %+v", got)
	}
	if !c.Detected() {
		t.Fatal("expected Detected() to be true after Refresh")
	}
}

func TestRefreshRecordsMissingTool(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "toolcache.json"))

	if err := c.Refresh(context.Background(), map[string]string{"ghost": "definitely-not-a-real-binary-xyz"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got, ok := c.Get("ghost")
	if !ok {
		t.Fatal("expected ghost entry to exist even though the binary is missing")
	}
	if got.Available {
		t.Fatalf("expected missing binary to be marked unavailable, got %+v", got)
	}
	if got.Error == "" {
		t.Fatal("expected an error message recorded for the missing binary")
	}
}

func TestLoadReadsPersistedCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolcache.json")

	first := New(path)
	if err := first.Refresh(context.Background(), map[string]string{"sh": "sh"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	second := New(path)
	if err := second.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !second.Detected() {
		t.Fatal("expected loaded cache to report Detected")
	}
	got, ok := second.Get("sh")
	if !ok || !got.Available {
		t.Fatalf("expected persisted capability to round-trip, got %+v ok=%v", got, ok)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err := c.Load(); err != nil {
		t.Fatalf("expected no error loading a missing cache file, got %v", err)
	}
	if c.Detected() {
		t.Fatal("expected Detected() to remain false when no cache file exists")
	}
}
