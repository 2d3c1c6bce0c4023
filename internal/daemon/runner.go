// Package daemon wires the processing core into a single jobs.Runner and
// a set of supervised background loops, the glue cmd/vpod's thin
// bootstrap hands to internal/jobs.NewWorkerPool and
// github.com/thejerf/suture/v4. None of the dispatch logic here belongs
// in internal/jobs itself — that package only knows how to claim, run,
// and report on whatever Runner it's given (spec.md §4.11).
package daemon

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/jobs"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/scanner"
	"github.com/randomparity/vpo/internal/workflow"
)

// Runner dispatches a claimed jobs.JobView to the phased workflow
// processor (process/transcode/move — each is the same ProcessFile call,
// distinguished only by which phases the job's cached policy document
// names in its workflow.phases list) or to a full library scan
// (scan jobs carry no single target file).
type Runner struct {
	Store        *catalog.Store
	Processor    *workflow.Processor
	Scanner      *scanner.Scanner
	LibraryRoots []string
	Incremental  bool
}

// Run implements jobs.Runner.
func (r *Runner) Run(ctx context.Context, job jobs.JobView, report jobs.ProgressReporter) (jobs.Result, error) {
	switch job.JobType {
	case domain.JobTypeScan:
		return r.runScan(ctx, report)
	case domain.JobTypeProcess, domain.JobTypeTranscode, domain.JobTypeMove:
		return r.runProcess(ctx, job, report)
	default:
		return jobs.Result{}, fmt.Errorf("daemon: unknown job type %q", job.JobType)
	}
}

func (r *Runner) runScan(ctx context.Context, report jobs.ProgressReporter) (jobs.Result, error) {
	report(0, "scanning library roots")
	summary, err := r.Scanner.Scan(ctx, r.LibraryRoots, r.Incremental, func(done, total int) {
		if total > 0 {
			report(100*float64(done)/float64(total), "")
		}
	})
	if err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: scan: %w", err)
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: marshal scan summary: %w", err)
	}
	return jobs.Result{SummaryJSON: string(summaryJSON)}, nil
}

func (r *Runner) runProcess(ctx context.Context, job jobs.JobView, report jobs.ProgressReporter) (jobs.Result, error) {
	var doc policy.Document
	if err := json.Unmarshal([]byte(job.PolicyJSON), &doc); err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: parse cached policy for job %s: %w", job.ID, err)
	}

	file, err := r.Store.GetFileByID(job.FileID)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: load file %d: %w", job.FileID, err)
	}
	if file == nil {
		return jobs.Result{}, fmt.Errorf("daemon: file %d no longer catalogued", job.FileID)
	}

	tracks, err := r.Store.GetTracks(job.FileID)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: load tracks for file %d: %w", job.FileID, err)
	}

	report(0, "")
	result, err := r.Processor.ProcessFile(ctx, doc, workflow.Input{File: *file, Tracks: tracks})
	if err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: process %s: %w", job.FilePath, err)
	}
	report(100, "")

	summaryJSON, err := json.Marshal(result)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("daemon: marshal process result: %w", err)
	}
	if !result.Success {
		return jobs.Result{SummaryJSON: string(summaryJSON)}, fmt.Errorf("daemon: %s", result.ErrorMessage)
	}

	logger.Info("daemon: file processed", "path", job.FilePath, "changes", result.TotalChanges,
		"phases_completed", result.PhasesCompleted, "phases_skipped", result.PhasesSkipped)
	return jobs.Result{SummaryJSON: string(summaryJSON)}, nil
}
