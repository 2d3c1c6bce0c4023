package configwatch

import (
	"fmt"
	"strings"

	"github.com/randomparity/vpo/internal/config"
)

// hotReloadableFields are the §4.14 "Hot updates currently cover" set:
// log level, job retention and worker limits, processing parallelism,
// transcription plugin settings, language standard, behavior flags.
// Everything else changeable in config.Config is restart-required:
// bind address, port, auth token, database path, tool paths, plugin
// directories, data dir, library roots (the scan loop and the job
// runner keep the roots they were given at startup).
var hotReloadableFields = map[string]bool{
	"log_level":                   true,
	"language_standard":           true,
	"jobs.workers":                true,
	"jobs.retention_days":         true,
	"jobs.schedule_enabled":       true,
	"jobs.schedule_start_hour":    true,
	"jobs.schedule_end_hour":      true,
	"processing.parallelism":      true,
	"processing.incremental_scan": true,
	"processing.prune_mode":       true,
	"processing.keep_larger_files": true,
	"processing.allow_same_codec": true,
	"transcription.enabled":       true,
	"transcription.plugin_path":   true,
	"transcription.timeout_seconds": true,
}

// Classify diffs old against newCfg field by field and reports every
// changed field along with whether it is hot-reloadable.
func Classify(old, newCfg *config.Config) []Diff {
	if old == nil || newCfg == nil {
		return nil
	}

	var diffs []Diff

	diffs = appendIfChanged(diffs, "data_dir", old.DataDir, newCfg.DataDir)
	diffs = appendIfChanged(diffs, "db_path", old.DBPath, newCfg.DBPath)
	diffs = appendIfChanged(diffs, "plugin_dirs", joinSlice(old.PluginDirs), joinSlice(newCfg.PluginDirs))
	diffs = appendIfChanged(diffs, "library_roots", joinSlice(old.LibraryRoots), joinSlice(newCfg.LibraryRoots))
	diffs = appendIfChanged(diffs, "bind_addr", old.BindAddr, newCfg.BindAddr)
	diffs = appendIfChanged(diffs, "port", fmt.Sprint(old.Port), fmt.Sprint(newCfg.Port))
	diffs = appendIfChanged(diffs, "auth_token", old.AuthToken, newCfg.AuthToken)
	diffs = appendIfChanged(diffs, "session_secret", old.SessionSecret, newCfg.SessionSecret)
	diffs = appendIfChanged(diffs, "ffmpeg_path", old.FFmpegPath, newCfg.FFmpegPath)
	diffs = appendIfChanged(diffs, "ffprobe_path", old.FFprobePath, newCfg.FFprobePath)
	diffs = appendIfChanged(diffs, "log_level", old.LogLevel, newCfg.LogLevel)
	diffs = appendIfChanged(diffs, "language_standard", old.LanguageStandard, newCfg.LanguageStandard)

	diffs = appendIfChanged(diffs, "jobs.workers", fmt.Sprint(old.Jobs.Workers), fmt.Sprint(newCfg.Jobs.Workers))
	diffs = appendIfChanged(diffs, "jobs.retention_days", fmt.Sprint(old.Jobs.RetentionDays), fmt.Sprint(newCfg.Jobs.RetentionDays))
	diffs = appendIfChanged(diffs, "jobs.schedule_enabled", fmt.Sprint(old.Jobs.ScheduleEnabled), fmt.Sprint(newCfg.Jobs.ScheduleEnabled))
	diffs = appendIfChanged(diffs, "jobs.schedule_start_hour", fmt.Sprint(old.Jobs.ScheduleStartHour), fmt.Sprint(newCfg.Jobs.ScheduleStartHour))
	diffs = appendIfChanged(diffs, "jobs.schedule_end_hour", fmt.Sprint(old.Jobs.ScheduleEndHour), fmt.Sprint(newCfg.Jobs.ScheduleEndHour))

	diffs = appendIfChanged(diffs, "processing.parallelism", fmt.Sprint(old.Processing.Parallelism), fmt.Sprint(newCfg.Processing.Parallelism))
	diffs = appendIfChanged(diffs, "processing.incremental_scan", fmt.Sprint(old.Processing.IncrementalScan), fmt.Sprint(newCfg.Processing.IncrementalScan))
	diffs = appendIfChanged(diffs, "processing.prune_mode", old.Processing.PruneMode, newCfg.Processing.PruneMode)
	diffs = appendIfChanged(diffs, "processing.keep_larger_files", fmt.Sprint(old.Processing.KeepLargerFiles), fmt.Sprint(newCfg.Processing.KeepLargerFiles))
	diffs = appendIfChanged(diffs, "processing.allow_same_codec", fmt.Sprint(old.Processing.AllowSameCodec), fmt.Sprint(newCfg.Processing.AllowSameCodec))

	diffs = appendIfChanged(diffs, "transcription.enabled", fmt.Sprint(old.Transcription.Enabled), fmt.Sprint(newCfg.Transcription.Enabled))
	diffs = appendIfChanged(diffs, "transcription.plugin_path", old.Transcription.PluginPath, newCfg.Transcription.PluginPath)
	diffs = appendIfChanged(diffs, "transcription.timeout_seconds", fmt.Sprint(old.Transcription.TimeoutSec), fmt.Sprint(newCfg.Transcription.TimeoutSec))

	return diffs
}

func appendIfChanged(diffs []Diff, field, oldVal, newVal string) []Diff {
	if oldVal == newVal {
		return diffs
	}
	return append(diffs, Diff{Field: field, Old: oldVal, New: newVal, HotReloadable: hotReloadableFields[field]})
}

func joinSlice(s []string) string {
	return strings.Join(s, ",")
}
