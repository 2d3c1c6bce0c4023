// Package jobs runs the durable work queue described in spec.md §4.11: a
// catalog-backed set of jobs (scan, process, transcode, move), a pool of
// workers that claim and execute them, and a retention sweep that ages out
// terminated jobs. Durability lives in internal/catalog's jobs table — this
// package adds the in-process pieces a JSON-file queue would otherwise need
// to reinvent: pub/sub for progress streaming and the worker pool itself.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/logger"
)

// EventType names what happened to a job, for Queue subscribers (spec.md
// §6.3 SSE job-progress stream).
type EventType string

const (
	EventEnqueued  EventType = "enqueued"
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Event is broadcast to every Queue subscriber whenever a job changes state.
type Event struct {
	Type EventType
	Job  domain.Job
}

// Queue is a thin, catalog-backed front for job persistence plus an
// in-process pub/sub overlay for progress streaming. Unlike the JSON-file
// queue it's grounded on, every mutating call commits straight to the
// database via internal/catalog.Store — there is no separate in-memory
// index to keep in sync, and nothing here survives a restart that the
// database doesn't already remember.
type Queue struct {
	store *catalog.Store

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewQueue wraps store.
func NewQueue(store *catalog.Store) *Queue {
	return &Queue{store: store, subscribers: make(map[chan Event]struct{})}
}

// Enqueue inserts a new job, assigning it a UUID and creation time if not
// already set (spec.md §3.3 job IDs are UUIDs).
func (q *Queue) Enqueue(j domain.Job) (domain.Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	if j.Priority == 0 {
		j.Priority = 100
	}
	j.Status = domain.JobQueued
	if err := q.store.EnqueueJob(j); err != nil {
		return domain.Job{}, err
	}
	q.broadcast(Event{Type: EventEnqueued, Job: j})
	return j, nil
}

// Claim atomically hands the oldest highest-priority queued job to
// workerID, or returns (nil, nil) if the queue is empty.
func (q *Queue) Claim(workerID string) (*domain.Job, error) {
	j, err := q.store.ClaimJob(workerID)
	if err != nil || j == nil {
		return j, err
	}
	q.broadcast(Event{Type: EventStarted, Job: *j})
	return j, nil
}

// ReportProgress records a job's percent-complete and a free-form detail
// blob (e.g. the last parsed FFmpegProgress line) and broadcasts it.
func (q *Queue) ReportProgress(jobID string, percent float64, detailJSON string) error {
	if err := q.store.ReportProgress(jobID, percent, detailJSON); err != nil {
		return err
	}
	q.broadcast(Event{Type: EventProgress, Job: domain.Job{ID: jobID, ProgressPercent: percent, ProgressJSON: detailJSON}})
	return nil
}

// Complete marks jobID completed with a summary and output path.
func (q *Queue) Complete(jobID, summaryJSON, outputPath string) error {
	if err := q.store.CompleteJob(jobID, summaryJSON, outputPath); err != nil {
		return err
	}
	j, _ := q.store.GetJob(jobID)
	if j != nil {
		q.broadcast(Event{Type: EventCompleted, Job: *j})
	}
	return nil
}

// Fail marks jobID failed with errMsg.
func (q *Queue) Fail(jobID, errMsg string) error {
	if err := q.store.FailJob(jobID, errMsg); err != nil {
		return err
	}
	j, _ := q.store.GetJob(jobID)
	if j != nil {
		q.broadcast(Event{Type: EventFailed, Job: *j})
	}
	return nil
}

// Cancel marks jobID cancelled with reason.
func (q *Queue) Cancel(jobID, reason string) error {
	if err := q.store.CancelJob(jobID, reason); err != nil {
		return err
	}
	j, _ := q.store.GetJob(jobID)
	if j != nil {
		q.broadcast(Event{Type: EventCancelled, Job: *j})
	}
	return nil
}

// Requeue hands a running job back to the queue (used by WorkerPool.Pause
// and WorkerPool.Resize, which cancel in-flight jobs rather than lose them).
func (q *Queue) Requeue(jobID string) error {
	return q.store.RequeueJob(jobID)
}

// Get returns a job by ID, or (nil, nil) if it doesn't exist.
func (q *Queue) Get(jobID string) (*domain.Job, error) {
	return q.store.GetJob(jobID)
}

// ListByStatus returns every job in the given status, oldest first.
func (q *Queue) ListByStatus(status domain.JobStatus) ([]domain.Job, error) {
	return q.store.ListJobsByStatus(status)
}

// Stats summarizes queue depth by status (spec.md §6.3 job-queue status
// endpoint).
type Stats struct {
	Queued    int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// Stats aggregates job counts per status.
func (q *Queue) Stats() (Stats, error) {
	var s Stats
	for status, dst := range map[domain.JobStatus]*int{
		domain.JobQueued:    &s.Queued,
		domain.JobRunning:   &s.Running,
		domain.JobCompleted: &s.Completed,
		domain.JobFailed:    &s.Failed,
		domain.JobCancelled: &s.Cancelled,
	} {
		jobs, err := q.store.ListJobsByStatus(status)
		if err != nil {
			return Stats{}, fmt.Errorf("jobs: stats: %w", err)
		}
		*dst = len(jobs)
	}
	return s, nil
}

// Subscribe returns a channel that receives every Event from this point
// on. The channel is buffered; a slow subscriber drops events rather than
// stalling job processing.
func (q *Queue) Subscribe() chan Event {
	ch := make(chan Event, 100)
	q.subMu.Lock()
	q.subscribers[ch] = struct{}{}
	q.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (q *Queue) Unsubscribe(ch chan Event) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	if _, ok := q.subscribers[ch]; ok {
		delete(q.subscribers, ch)
		close(ch)
	}
}

func (q *Queue) broadcast(e Event) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	for ch := range q.subscribers {
		select {
		case ch <- e:
		default:
			logger.Warn("jobs: dropping event for slow subscriber", "type", e.Type, "job_id", e.Job.ID)
		}
	}
}

// Recover resets jobs left in "running" by an unclean shutdown back to
// queued, so a restart picks them back up instead of stranding them
// (spec.md §4.11).
func (q *Queue) Recover() (int, error) {
	n, err := q.store.ResetRunningJobs()
	if n > 0 {
		logger.Info("jobs: recovered running jobs left over from an unclean shutdown", "count", n)
	}
	return n, err
}
