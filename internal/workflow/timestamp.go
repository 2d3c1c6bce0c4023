package workflow

import (
	"fmt"
	"os"
	"time"

	"github.com/randomparity/vpo/internal/policy"
)

// runTimestamp sets the file's mtime per FileTimestampConfig.Mode
// (spec.md §4.10 step 3 "timestamp"). It writes directly with os.Chtimes
// rather than going through the executor: there is no media-tool
// invocation here, only a metadata-only mtime update, so the executor's
// backup/remux machinery would be pure overhead.
func (p *Processor) runTimestamp(def policy.PhaseDefinition, state *phaseState) (int, error) {
	cfg := def.Timestamp
	if cfg.Mode == "" {
		return 0, nil
	}

	when, err := resolveTimestamp(cfg.Mode, cfg.Date, state)
	if err != nil {
		if cfg.Fallback == "" {
			return 0, err
		}
		when, err = resolveTimestamp(cfg.Fallback, cfg.Date, state)
		if err != nil {
			return 0, err
		}
	}
	if when.IsZero() {
		return 0, nil
	}

	if err := os.Chtimes(state.file.Path, when, when); err != nil {
		return 0, fmt.Errorf("workflow: set file timestamp: %w", err)
	}
	return 1, nil
}

// resolveTimestamp computes the mtime a mode resolves to. "preserve"
// resolves to the zero time, a no-op Chtimes never needs to perform.
func resolveTimestamp(mode policy.TimestampMode, date string, state *phaseState) (time.Time, error) {
	switch mode {
	case policy.TimestampModeNow:
		return time.Now(), nil
	case policy.TimestampModeFixed:
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return time.Time{}, fmt.Errorf("workflow: parse timestamp.date %q: %w", date, err)
		}
		return t, nil
	case policy.TimestampModePreserve:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("workflow: unknown timestamp mode %q", mode)
	}
}
