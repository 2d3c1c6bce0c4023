// Package workflow runs one file through a policy document's ordered
// phases: per-phase skip_when evaluation, conditional-rules pre-gating,
// phase-body dispatch, and on_error handling (spec.md §4.10). It is the
// orchestration layer above internal/evaluator and internal/executor —
// grounded on the teacher's jobs/worker.go processJob, which runs a
// single job through a fixed sequence of named steps, logs at each
// transition, and reports a terminal outcome.
package workflow

import (
	"time"

	"github.com/randomparity/vpo/internal/policy"
)

// SkipReasonType classifies why a phase contributed no changes
// (spec.md §4.10 step 1).
type SkipReasonType string

const (
	SkipReasonCondition    SkipReasonType = "CONDITION"
	SkipReasonPrecondition SkipReasonType = "PRECONDITION"
	SkipReasonNoop         SkipReasonType = "NOOP"
)

// SkipReason records why a phase was skipped or produced no changes.
type SkipReason struct {
	Type           SkipReasonType
	Message        string
	ConditionName  string
	ConditionValue string
}

// PhaseResult is one phase's outcome within a FileProcessingResult
// (spec.md §4.10).
type PhaseResult struct {
	Name        policy.PhaseName
	Success     bool
	Duration    time.Duration
	SkipReason  *SkipReason
	ChangesMade int
	Warnings    []string
	Error       string
}

// FileProcessingResult aggregates every phase's outcome for one file.
type FileProcessingResult struct {
	FilePath        string
	PhaseResults    []PhaseResult
	TotalChanges    int
	PhasesCompleted int
	PhasesFailed    int
	PhasesSkipped   int
	ErrorMessage    string
	Success         bool
}

// ErrorClass is an informational, non-behavioral classification of a
// failure (spec.md §4.10); no caller in this module acts on it.
type ErrorClass string

const (
	ErrorPermanent ErrorClass = "PERMANENT"
	ErrorTransient ErrorClass = "TRANSIENT"
	ErrorFatal     ErrorClass = "FATAL"
)
