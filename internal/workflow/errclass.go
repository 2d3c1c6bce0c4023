package workflow

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/randomparity/vpo/internal/executor"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
)

// ClassifyError buckets an error into the informational taxonomy spec.md
// §4.10 describes: file-not-found/schema problems are PERMANENT, the
// advisory lock and disk/database contention are TRANSIENT, and
// everything else (including an explicit rule fail action) is FATAL.
// This never changes processing behavior. Nothing in this module calls
// it: the job queue marks a failed job failed and does not retry it.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrorPermanent
	case errors.Is(err, policy.ErrSchemaVersionTooOld), errors.Is(err, policy.ErrFlatPolicyRejected):
		return ErrorPermanent
	case errors.Is(err, executor.ErrFileLocked), errors.Is(err, executor.ErrInsufficientSpace):
		return ErrorTransient
	case errors.Is(err, fs.ErrPermission):
		return ErrorTransient
	case isDatabaseBusy(err):
		return ErrorTransient
	}

	var failErr *rules.FailError
	if errors.As(err, &failErr) {
		return ErrorFatal
	}

	return ErrorFatal
}

func isDatabaseBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy") || strings.Contains(msg, "sqlite_busy")
}
