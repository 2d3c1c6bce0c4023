package jobs

import "errors"

// Sentinel errors for job operations, checkable with errors.Is.
var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobNotRunning = errors.New("job is not running")
)
