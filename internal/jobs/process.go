package jobs

import (
	"context"
	"time"

	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/util"
)

// processJob claims ownership of job for cancellation purposes, hands it
// to the pool's Runner, and records the outcome. It never panics: a Runner
// error just fails the job, the same way the teacher's processJob folds
// every ffmpeg failure into queue.FailJob rather than propagating it.
func (w *Worker) processJob(job domain.Job) {
	start := time.Now()

	jobCtx, jobCancel := context.WithCancel(w.ctx)
	defer jobCancel()

	w.currentJobMu.Lock()
	w.currentJobID = job.ID
	w.jobCancel = jobCancel
	w.jobDone = make(chan struct{})
	w.currentJobMu.Unlock()

	defer func() {
		w.currentJobMu.Lock()
		w.currentJobID = ""
		w.jobCancel = nil
		if w.jobDone != nil {
			close(w.jobDone)
			w.jobDone = nil
		}
		w.currentJobMu.Unlock()
	}()

	logger.Info("jobs: job started", "job_id", job.ID, "type", job.JobType, "file", job.FilePath)

	report := func(percent float64, detail string) {
		if err := w.queue.ReportProgress(job.ID, percent, detail); err != nil {
			logger.Warn("jobs: failed to report progress", "job_id", job.ID, "error", err)
		}
	}

	result, err := w.runner.Run(jobCtx, viewOf(job), report)
	if err != nil {
		if jobCtx.Err() != nil {
			// Either this job was cancelled individually, the pool was
			// paused (Pause has already requeued the row), or the whole
			// worker was stopped. In the worker-stopped case leave the
			// row as running: ResetRunningJobs recovers it on restart.
			if w.ctx.Err() == nil && !w.pool.IsPaused() {
				logger.Info("jobs: job cancelled", "job_id", job.ID)
				_ = w.queue.Cancel(job.ID, "cancelled")
			} else if w.ctx.Err() == nil {
				logger.Info("jobs: job requeued by pause", "job_id", job.ID)
			} else {
				logger.Info("jobs: job interrupted by shutdown", "job_id", job.ID)
			}
			return
		}
		logger.Warn("jobs: job failed", "job_id", job.ID, "error", err)
		_ = w.queue.Fail(job.ID, err.Error())
		return
	}

	logger.Info("jobs: job complete", "job_id", job.ID, "duration", util.FormatDuration(time.Since(start)))
	_ = w.queue.Complete(job.ID, result.SummaryJSON, result.OutputPath)
}

// cancelCurrent cancels the job worker w is running if it matches jobID,
// returning a channel closed once the worker finishes, or nil if no match.
func (w *Worker) cancelCurrent(jobID string) <-chan struct{} {
	w.currentJobMu.Lock()
	defer w.currentJobMu.Unlock()
	if w.currentJobID == jobID && w.jobCancel != nil {
		w.jobCancel()
		return w.jobDone
	}
	return nil
}
