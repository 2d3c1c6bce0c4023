package jobs

import (
	"context"
	"time"

	"github.com/randomparity/vpo/internal/logger"
)

// RunRetentionSweeper deletes terminated jobs older than retentionDays on
// start and then every interval until ctx is cancelled (spec.md §4.11
// "delete terminated jobs older than jobs.retention_days on worker start
// and periodically"). Call it in its own goroutine.
func RunRetentionSweeper(ctx context.Context, queue *Queue, retentionDays int, interval time.Duration) {
	sweep := func() {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		n, err := queue.store.DeleteTerminatedJobsOlderThan(cutoff)
		if err != nil {
			logger.Warn("jobs: retention sweep failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("jobs: retention sweep removed terminated jobs", "count", n, "cutoff", cutoff)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
