// Package scanner walks configured library roots, probes new or changed
// files, and keeps the catalog in sync (spec.md §4.13). It generalizes the
// teacher's interactive directory browser into an unattended, incremental
// discovery pass: where browse.Browser answers "what's in this directory
// right now" for a UI, Scanner answers "what changed since the last scan"
// for the job queue.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/pluginbus"
	"github.com/randomparity/vpo/internal/probe"
)

// videoExtensions is the fixed allowlist of container extensions a scan
// considers (spec.md §4.13), grounded on the teacher's ffmpeg.IsVideoFile
// table.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".m4v": true, ".webm": true, ".wmv": true, ".flv": true, ".ts": true,
}

// IsVideoFile reports whether path's extension is in the scan allowlist.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// PruneMode controls how a scan treats catalog rows whose file is gone
// from disk (spec.md §4.13 "removed-file detection").
type PruneMode string

const (
	PruneMarkMissing PruneMode = "mark_missing"
	PruneDelete      PruneMode = "delete"
)

// Summary is a finished scan's result (spec.md §4.13: "a scan is itself a
// Job of type scan with summary {total_discovered, scanned, skipped,
// added, removed, errors}").
type Summary struct {
	TotalDiscovered int
	Scanned         int
	Skipped         int
	Added           int
	Removed         int
	Errors          int
}

// prober is the subset of *probe.Prober the scanner needs, narrowed to an
// interface so tests can substitute a fake instead of spawning ffprobe.
type prober interface {
	Probe(ctx context.Context, path string) (probe.IntrospectionResult, error)
}

// Scanner walks roots and upserts discovered files into the catalog.
type Scanner struct {
	store   *catalog.Store
	prober  prober
	bus     *pluginbus.Bus
	prune   PruneMode
	walkSem chan struct{}

	// dedups concurrent Scan calls against the same root so a manual
	// rescan trigger during an in-flight periodic scan doesn't double
	// the work — same concern as the teacher's countGroup.
	group singleflight.Group
}

// New constructs a Scanner. bus may be nil if no plugin dispatch is
// wanted (e.g. in tests).
func New(store *catalog.Store, p *probe.Prober, bus *pluginbus.Bus, prune PruneMode) *Scanner {
	if prune == "" {
		prune = PruneMarkMissing
	}
	return &Scanner{store: store, prober: p, bus: bus, prune: prune, walkSem: make(chan struct{}, 8)}
}

// ProgressFunc reports discovery progress as files are probed.
type ProgressFunc func(probed, total int)

// Scan walks every root, probing new or changed files and recording
// removed ones, and returns an aggregate Summary. Concurrent calls for the
// same root set share one in-flight scan (spec.md §4.13; singleflight
// dedup grounded on browse.go's countGroup).
func (s *Scanner) Scan(ctx context.Context, roots []string, incremental bool, progress ProgressFunc) (Summary, error) {
	key := strings.Join(roots, "|")
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.scan(ctx, roots, incremental, progress)
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

func (s *Scanner) scan(ctx context.Context, roots []string, incremental bool, progress ProgressFunc) (Summary, error) {
	var sum Summary
	seen := make(map[string]bool)

	var paths []string
	for _, root := range roots {
		found, err := discover(root)
		if err != nil {
			return sum, fmt.Errorf("scanner: walk %s: %w", root, err)
		}
		paths = append(paths, found...)
	}
	sum.TotalDiscovered = len(paths)

	var probed int32
	for _, path := range paths {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		seen[path] = true

		added, err := s.scanOne(ctx, path, incremental)
		n := atomic.AddInt32(&probed, 1)
		if progress != nil {
			progress(int(n), len(paths))
		}
		if err == errUnchanged {
			sum.Skipped++
			continue
		}
		if err != nil {
			sum.Errors++
			logger.Warn("scanner: failed to probe file", "path", path, "error", err)
			continue
		}
		if added {
			sum.Added++
		}
		sum.Scanned++
	}

	removed, err := s.pruneMissing(roots, seen)
	if err != nil {
		logger.Warn("scanner: prune pass failed", "error", err)
	}
	sum.Removed = removed

	return sum, nil
}

// errUnchanged is what scanOne returns for a file an incremental scan skips.
var errUnchanged = errors.New("scanner: file unchanged since last scan")

// scanOne probes and upserts a single file, skipping the probe entirely in
// incremental mode when (size, mtime) match the catalog row — spec.md
// §4.13 "compare (size, mtime) to catalog row, skip if unchanged". A
// skipped file is reported as errUnchanged; a probe failure is recorded on
// the catalog row and also returned.
func (s *Scanner) scanOne(ctx context.Context, path string, incremental bool) (added bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat: %w", err)
	}

	existing, err := s.store.GetFileByPath(path)
	if err != nil {
		return false, fmt.Errorf("lookup catalog row: %w", err)
	}

	if incremental && existing != nil &&
		existing.SizeBytes == info.Size() &&
		existing.ModifiedAt.Equal(info.ModTime().Truncate(time.Second)) &&
		existing.ScanStatus == domain.ScanStatusOK {
		return false, errUnchanged
	}

	result, probeErr := s.prober.Probe(ctx, path)
	f := domain.File{
		Path:       path,
		Filename:   filepath.Base(path),
		Directory:  filepath.Dir(path),
		Extension:  strings.ToLower(filepath.Ext(path)),
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime().Truncate(time.Second),
		ScannedAt:  time.Now(),
	}
	if existing != nil {
		f.PluginMetadata = existing.PluginMetadata
	}

	if probeErr != nil {
		f.ScanStatus = domain.ScanStatusError
		f.ScanError = probeErr.Error()
		if _, err := s.store.UpsertFile(f); err != nil {
			return false, err
		}
		return existing == nil, probeErr
	}

	f.ContainerFormat = result.ContainerFormat
	f.ScanStatus = domain.ScanStatusOK

	fileID, err := s.store.UpsertFile(f)
	if err != nil {
		return false, fmt.Errorf("upsert file: %w", err)
	}

	tracks := make([]domain.Track, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		tracks = append(tracks, domain.Track{
			FileID: fileID, TrackIndex: t.Index, Kind: t.Kind, Codec: t.Codec,
			Language: t.Language, Title: t.Title, IsDefault: t.IsDefault, IsForced: t.IsForced,
			Channels: t.Channels, ChannelLayout: t.ChannelLayout, Width: t.Width, Height: t.Height,
			FrameRate: t.FrameRate, ColorTransfer: t.ColorTransfer, ColorPrimaries: t.ColorPrimaries,
			ColorSpace: t.ColorSpace, DurationSeconds: t.DurationSeconds,
		})
	}
	if err := s.store.ReplaceTracks(fileID, tracks); err != nil {
		return false, fmt.Errorf("replace tracks: %w", err)
	}

	if s.bus != nil {
		f.ID = fileID
		s.bus.Dispatch(ctx, pluginbus.EventFileScanned, f)
	}

	return existing == nil, nil
}

// pruneMissing marks or deletes every catalogued file under roots that
// wasn't seen this pass.
func (s *Scanner) pruneMissing(roots []string, seen map[string]bool) (int, error) {
	all, err := s.store.ListFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range all {
		if seen[f.Path] || !underAnyRoot(f.Path, roots) {
			continue
		}
		if f.ScanStatus == domain.ScanStatusMissing && s.prune == PruneMarkMissing {
			continue
		}
		switch s.prune {
		case PruneDelete:
			if err := s.store.DeleteFile(f.ID); err != nil {
				return removed, err
			}
		default:
			if err := s.store.MarkFileMissing(f.ID); err != nil {
				return removed, err
			}
		}
		removed++
	}
	return removed, nil
}

func underAnyRoot(path string, roots []string) bool {
	for _, root := range roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// discover walks root for every allowlisted video file.
func discover(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsVideoFile(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
