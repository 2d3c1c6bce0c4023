package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FFmpegPath != "ffmpeg" || cfg.Jobs.Workers != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
}

func TestLoadAppliesDefaultsForZeroFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected overridden log level, got %q", cfg.LogLevel)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Fatalf("expected default ffmpeg path to survive partial load, got %q", cfg.FFmpegPath)
	}
	if cfg.Jobs.Workers != 2 {
		t.Fatalf("expected workers to keep the default of 2 when unset by YAML, got %d", cfg.Jobs.Workers)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.LibraryRoots = []string{"/media/movies", "/media/tv"}
	cfg.Jobs.Workers = 4

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Jobs.Workers != 4 || len(loaded.LibraryRoots) != 2 {
		t.Fatalf("round-trip mismatch: %+v", loaded)
	}
}

func TestCloneDoesNotAliasSlices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LibraryRoots = []string{"/media"}

	clone := cfg.Clone()
	clone.LibraryRoots[0] = "/mutated"

	if cfg.LibraryRoots[0] != "/media" {
		t.Fatalf("expected clone to not alias the original slice, original mutated to %q", cfg.LibraryRoots[0])
	}
}
