// Package util provides small formatting helpers shared across the job
// queue, worker, and HTTP layers for human-readable log and summary output.
package util

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count using binary (IEC) units, e.g. "1.2 GiB".
func FormatBytes(n int64) string {
	if n < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// FormatDuration renders a duration for job summaries and ETAs, dropping
// sub-second precision and using a compact "1h2m3s" style for anything
// under a day.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < 24*time.Hour {
		return d.Round(time.Second).String()
	}
	days := d / (24 * time.Hour)
	rest := (d % (24 * time.Hour)).Round(time.Minute)
	return fmt.Sprintf("%dd%s", days, rest)
}
