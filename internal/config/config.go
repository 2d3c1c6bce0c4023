// Package config holds the daemon's own configuration: data directory,
// HTTP bind address, job/worker limits, tool paths, and the other fields
// spec.md §6.6 and §4.14 describe. It follows the teacher's
// load-or-create-default YAML pattern (Load/Save/DefaultConfig), separate
// from the policy document format in internal/policy which has its own
// YAML schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// JobsConfig tunes the job queue and worker pool (spec.md §4.11, §4.14
// "job retention and worker limits" are hot-reloadable).
type JobsConfig struct {
	Workers           int  `yaml:"workers"`
	RetentionDays     int  `yaml:"retention_days"`
	ScheduleEnabled   bool `yaml:"schedule_enabled"`
	ScheduleStartHour int  `yaml:"schedule_start_hour"`
	ScheduleEndHour   int  `yaml:"schedule_end_hour"`
}

// ProcessingConfig tunes scan/evaluate/execute parallelism and behavior
// flags (spec.md §4.14 "processing parallelism... behavior flags").
type ProcessingConfig struct {
	Parallelism     int    `yaml:"parallelism"`
	IncrementalScan bool   `yaml:"incremental_scan"`
	PruneMode       string `yaml:"prune_mode"` // "mark_missing" or "delete"
	KeepLargerFiles bool   `yaml:"keep_larger_files"`
	AllowSameCodec  bool   `yaml:"allow_same_codec"`
}

// TranscriptionConfig controls the transcription plugin's endpoint and
// timeout (spec.md §4.14 "transcription plugin settings").
type TranscriptionConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PluginPath string `yaml:"plugin_path"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// Config is the daemon's full configuration (spec.md §6.6).
type Config struct {
	// DataDir is the root for the database, plugin dir default, and
	// tool-capability cache. Default: "~/.vpo".
	DataDir string `yaml:"data_dir"`

	// DBPath is the catalog SQLite file. Default: "<data_dir>/vpo.db".
	DBPath string `yaml:"db_path"`

	// PluginDirs are searched for transcription/event-bus plugins.
	// Default: ["<data_dir>/plugins"].
	PluginDirs []string `yaml:"plugin_dirs"`

	// LibraryRoots are the media directories the scanner walks.
	LibraryRoots []string `yaml:"library_roots"`

	// PolicyPath locates the policy document files are evaluated against.
	// Default: "<data_dir>/policy.yaml". Policy selection is a daemon
	// config concern, not a CLI one (spec.md §1 Non-goals).
	PolicyPath string `yaml:"policy_path"`

	// BindAddr and Port serve the HTTP boundary (spec.md §6.3).
	BindAddr string `yaml:"bind_addr"`
	Port     int    `yaml:"port"`

	// AuthToken, if set, requires HTTP Basic auth on every endpoint
	// except /health (spec.md §6.6).
	AuthToken string `yaml:"auth_token"`

	// SessionSecret is the key for web UI session cookies. The daemon's
	// HTTP layer does not read it and issues no session cookies; an
	// empty value is accepted as is and no key is generated.
	SessionSecret string `yaml:"session_secret"`

	// FFmpegPath and FFprobePath locate the external media tools
	// (spec.md §6.2).
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	// Hot-reloadable (spec.md §4.14 "applied immediately").
	LogLevel string `yaml:"log_level"`

	// LanguageStandard selects the normalizer's canonical code family,
	// e.g. "iso639-2/b" (spec.md §4.3). Hot-reloadable.
	LanguageStandard string `yaml:"language_standard"`

	Jobs          JobsConfig          `yaml:"jobs"`
	Processing    ProcessingConfig    `yaml:"processing"`
	Transcription TranscriptionConfig `yaml:"transcription"`
}

// DefaultConfig returns a config with sensible defaults (spec.md §6.6).
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".vpo")

	return &Config{
		DataDir:          dataDir,
		DBPath:           filepath.Join(dataDir, "vpo.db"),
		PluginDirs:       []string{filepath.Join(dataDir, "plugins")},
		PolicyPath:       filepath.Join(dataDir, "policy.yaml"),
		BindAddr:         "127.0.0.1",
		Port:             8080,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		LogLevel:         "info",
		LanguageStandard: "iso639-2/b",
		Jobs: JobsConfig{
			Workers:           2,
			RetentionDays:     30,
			ScheduleStartHour: 22,
			ScheduleEndHour:   6,
		},
		Processing: ProcessingConfig{
			Parallelism:     2,
			IncrementalScan: true,
			PruneMode:       "mark_missing",
		},
		Transcription: TranscriptionConfig{
			TimeoutSec: 30,
		},
	}
}

// Load reads config from a YAML file, applying defaults for missing
// values. A missing file is created with defaults, matching the
// teacher's load-or-create-default convention.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if saveErr := cfg.Save(path); saveErr != nil {
				fmt.Printf("warning: could not create config file: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills zero-value fields after a partial YAML load, the
// same pass the teacher's Load performs inline.
func (c *Config) applyDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LanguageStandard == "" {
		c.LanguageStandard = "iso639-2/b"
	}
	if c.PolicyPath == "" {
		c.PolicyPath = filepath.Join(c.DataDir, "policy.yaml")
	}
	if c.Jobs.Workers < 1 {
		c.Jobs.Workers = 1
	}
	if c.Jobs.RetentionDays < 1 {
		c.Jobs.RetentionDays = 30
	}
	if c.Processing.Parallelism < 1 {
		c.Processing.Parallelism = 1
	}
	if c.Processing.PruneMode == "" {
		c.Processing.PruneMode = "mark_missing"
	}
}

// Save writes the config to a YAML file, creating its parent directory
// if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Clone returns a deep-enough copy for configwatch to diff against a
// freshly loaded config (slice fields are copied, not aliased).
func (c *Config) Clone() *Config {
	cp := *c
	cp.PluginDirs = append([]string(nil), c.PluginDirs...)
	cp.LibraryRoots = append([]string(nil), c.LibraryRoots...)
	return &cp
}
