// Package metrics exposes the daemon's job-queue and processing counters
// as Prometheus gauges, scraped at /metrics alongside the JSON summary
// /health already reports (spec.md §6.3).
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/randomparity/vpo/internal/jobs"
	"github.com/randomparity/vpo/internal/logger"
)

var (
	JobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vpo",
		Subsystem: "jobs",
		Name:      "queued",
		Help:      "Number of jobs currently queued.",
	})
	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vpo",
		Subsystem: "jobs",
		Name:      "running",
		Help:      "Number of jobs currently running.",
	})
	JobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vpo",
		Subsystem: "jobs",
		Name:      "completed_total",
		Help:      "Total jobs that completed successfully.",
	})
	JobsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vpo",
		Subsystem: "jobs",
		Name:      "failed_total",
		Help:      "Total jobs that failed.",
	})
)

// lastCompleted/lastFailed let Collector turn queue.Stats' cumulative
// counts into counter deltas, since the queue itself reports totals, not
// increments, each time it's polled.
var lastCompleted, lastFailed int

// Collector samples jobs.Queue.Stats on an interval and updates the
// package's gauges/counters, the way a background exporter loop would
// in any Prometheus-instrumented service.
type Collector struct {
	Queue    *jobs.Queue
	Interval time.Duration
}

func (c *Collector) Serve(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	sample := func() {
		stats, err := c.Queue.Stats()
		if err != nil {
			logger.Warn("metrics: stats sample failed", "error", err)
			return
		}
		JobsQueued.Set(float64(stats.Queued))
		JobsRunning.Set(float64(stats.Running))
		if stats.Completed > lastCompleted {
			JobsCompletedTotal.Add(float64(stats.Completed - lastCompleted))
			lastCompleted = stats.Completed
		}
		if stats.Failed > lastFailed {
			JobsFailedTotal.Add(float64(stats.Failed - lastFailed))
			lastFailed = stats.Failed
		}
	}

	sample()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sample()
		}
	}
}
