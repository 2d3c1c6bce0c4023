package jobs

import (
	"context"

	"github.com/randomparity/vpo/internal/domain"
)

// Default job priority (spec.md §3.3: "lower is higher priority, default
// 100").
const DefaultPriority = 100

// ProgressReporter is handed to a Runner so it can push incremental
// progress without depending on the queue directly.
type ProgressReporter func(percent float64, detail string)

// Result is what a Runner returns for a finished job: a JSON summary
// blob (job-type specific — phase counts for a process job, discovery
// counts for a scan job) and an optional output path when the job
// produced one.
type Result struct {
	SummaryJSON string
	OutputPath  string
}

// Runner executes one claimed job's actual work. internal/jobs hands every
// claimed job to the Runner, which dispatches by domain.Job.JobType, so
// this package never knows the scan/workflow/transcode internals itself —
// callers wire in internal/workflow.Processor (process
// jobs) and internal/scanner (scan jobs) at construction time, mirroring
// the teacher's own dependency-injected Transcoder/Prober on Worker.
type Runner interface {
	Run(ctx context.Context, job JobView, report ProgressReporter) (Result, error)
}

// JobView is the subset of domain.Job a Runner needs; kept distinct from
// domain.Job so this package's public surface doesn't leak catalog-layer
// scanning details a Runner has no business depending on.
type JobView struct {
	ID         string
	FileID     int64
	FilePath   string
	JobType    domain.JobType
	PolicyName string
	PolicyJSON string
}

func viewOf(j domain.Job) JobView {
	return JobView{ID: j.ID, FileID: j.FileID, FilePath: j.FilePath, JobType: j.JobType, PolicyName: j.PolicyName, PolicyJSON: j.PolicyJSON}
}
