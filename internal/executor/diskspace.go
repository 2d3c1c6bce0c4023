package executor

import (
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/randomparity/vpo/internal/plan"
)

// spaceMultiplier estimates the worst-case extra bytes an operation
// needs beyond the input size, per spec.md §4.9 ("e.g. transcode to
// HEVC ≈ 0.5x input; remux ≈ 2.5x input to cover backup + temp").
func spaceMultiplier(structural bool) float64 {
	if structural {
		return 2.5
	}
	return 1.1 // metadata-only edits still take a full backup copy
}

// checkFreeSpace verifies the target filesystem has both the
// configured minimum free percentage and enough headroom for the
// estimated output size.
func checkFreeSpace(path string, inputSize int64, structural bool, minFreePercent float64) error {
	dir := filepath.Dir(path)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("executor: statfs %s: %w", dir, err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	if total == 0 {
		return nil
	}
	freePercent := float64(free) / float64(total) * 100

	estimated := int64(float64(inputSize) * spaceMultiplier(structural))
	if freePercent < minFreePercent || free < uint64(estimated) {
		return fmt.Errorf("%w: %.1f%% free (need %.1f%%), %d bytes available (need ~%d)",
			ErrInsufficientSpace, freePercent, minFreePercent, free, estimated)
	}
	return nil
}

// estimateOutputSize applies a per-action-kind heuristic multiplier,
// used only for logging/telemetry, never for the hard disk-space gate
// above (which always assumes the worst case).
func estimateOutputSize(inputSize int64, actions []plan.Action) int64 {
	mult := 1.0
	for _, a := range actions {
		switch a.Kind {
		case plan.ActionTranscodeVideo:
			mult = 0.5
		case plan.ActionRemux:
			if mult < 1.0 {
				mult = 1.0
			}
		}
	}
	return int64(float64(inputSize) * mult)
}
