package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randomparity/vpo/internal/logger"
)

// Config controls worker pool sizing and scheduling (spec.md §4.11).
type Config struct {
	// Workers is the number of concurrent job workers (default 2).
	Workers int

	// RetentionDays is how long a terminated job's row survives before
	// the retention sweep deletes it.
	RetentionDays int

	// ScheduleEnabled restricts job processing to a time-of-day window,
	// e.g. so transcodes only run overnight.
	ScheduleEnabled   bool
	ScheduleStartHour int
	ScheduleEndHour   int
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{Workers: 2, RetentionDays: 30, ScheduleStartHour: 22, ScheduleEndHour: 6}
}

// Worker claims and runs jobs from a Queue until its context is cancelled.
type Worker struct {
	id     string
	pool   *WorkerPool
	queue  *Queue
	runner Runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	currentJobMu sync.Mutex
	currentJobID string
	jobCancel    context.CancelFunc
	jobDone      chan struct{}
}

// WorkerPool manages a set of Workers claiming from a shared Queue
// (spec.md §4.11 "worker loop ... configurable worker count").
type WorkerPool struct {
	mu      sync.Mutex
	workers []*Worker
	queue   *Queue
	runner  Runner
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool
}

// runningWorker pairs a worker with the job ID it's currently processing,
// used by Resize/Pause to pick cancellation order.
type runningWorker struct {
	worker *Worker
	jobID  string
}

// NewWorkerPool constructs a pool of cfg.Workers workers, none started yet.
func NewWorkerPool(queue *Queue, runner Runner, cfg Config) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	cfg.Workers = ClampWorkerCount(cfg.Workers)

	p := &WorkerPool{queue: queue, runner: runner, cfg: cfg, ctx: ctx, cancel: cancel}
	for i := 0; i < cfg.Workers; i++ {
		p.workers = append(p.workers, p.newWorker())
	}
	return p
}

func (p *WorkerPool) newWorker() *Worker {
	return &Worker{id: uuid.NewString(), pool: p, queue: p.queue, runner: p.runner}
}

// Start launches every worker's processing loop.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		w.start(p.ctx)
	}
}

// Stop cancels the pool context and waits for every worker to drain
// (spec.md §4.11 "graceful subprocess shutdown on interrupt").
func (p *WorkerPool) Stop() {
	p.cancel()
	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()
	for _, w := range workers {
		w.stop()
	}
}

// CancelJob cancels jobID if some worker is currently running it
// (spec.md §4.11 cancellation: "worker sees flag ... in-flight
// modifications roll back via backup").
func (p *WorkerPool) CancelJob(jobID string) bool {
	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()

	for _, w := range workers {
		if done := w.cancelCurrent(jobID); done != nil {
			return true
		}
	}
	return false
}

// Resize grows or shrinks the pool. Shrinking first stops workers that
// are running a job, in descending job-ID order, and requeues their jobs;
// job IDs are random UUIDs, so this order does not follow start time.
// Idle workers are then removed from the end of the list until n remain.
func (p *WorkerPool) Resize(n int) {
	n = ClampWorkerCount(n)
	p.mu.Lock()
	defer p.mu.Unlock()

	current := len(p.workers)
	if n > current {
		for i := current; i < n; i++ {
			w := p.newWorker()
			w.start(p.ctx)
			p.workers = append(p.workers, w)
		}
	} else if n < current {
		var running []runningWorker
		for _, w := range p.workers {
			w.currentJobMu.Lock()
			if w.currentJobID != "" {
				running = append(running, runningWorker{worker: w, jobID: w.currentJobID})
			}
			w.currentJobMu.Unlock()
		}
		sort.Slice(running, func(i, j int) bool { return running[i].jobID > running[j].jobID })

		toStop := current - n
		stopped := 0
		for _, rw := range running {
			if stopped >= toStop {
				break
			}
			rw.worker.stopAndWait()
			if err := p.queue.Requeue(rw.jobID); err != nil {
				logger.Warn("jobs: failed to requeue job during resize", "job_id", rw.jobID, "error", err)
			}
			p.removeWorkerLocked(rw.worker)
			stopped++
		}
		for len(p.workers) > n {
			w := p.workers[len(p.workers)-1]
			p.workers = p.workers[:len(p.workers)-1]
			w.stopAndWait()
		}
	}
	p.cfg.Workers = n
}

func (p *WorkerPool) removeWorkerLocked(target *Worker) {
	for i, w := range p.workers {
		if w == target {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			return
		}
	}
}

// IsPaused reports whether the pool is currently refusing new work.
func (p *WorkerPool) IsPaused() bool {
	p.pausedMu.RLock()
	defer p.pausedMu.RUnlock()
	return p.paused
}

// Pause stops every in-flight job, requeues it, and prevents workers from
// claiming new ones until Unpause. Returns the count requeued.
func (p *WorkerPool) Pause() int {
	p.pausedMu.Lock()
	p.paused = true
	p.pausedMu.Unlock()

	p.mu.Lock()
	var running []runningWorker
	for _, w := range p.workers {
		w.currentJobMu.Lock()
		if w.currentJobID != "" {
			running = append(running, runningWorker{worker: w, jobID: w.currentJobID})
		}
		w.currentJobMu.Unlock()
	}
	p.mu.Unlock()

	sort.Slice(running, func(i, j int) bool { return running[i].jobID < running[j].jobID })

	count := 0
	for i := len(running) - 1; i >= 0; i-- {
		rw := running[i]
		if err := p.queue.Requeue(rw.jobID); err != nil {
			logger.Warn("jobs: failed to requeue job during pause", "job_id", rw.jobID, "error", err)
			continue
		}
		count++
		if done := rw.worker.cancelCurrent(rw.jobID); done != nil {
			<-done
		}
	}
	return count
}

// Unpause allows workers to claim jobs again.
func (p *WorkerPool) Unpause() {
	p.pausedMu.Lock()
	p.paused = false
	p.pausedMu.Unlock()
}

// WorkerCount returns the current number of workers.
func (p *WorkerPool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (w *Worker) start(parentCtx context.Context) {
	w.ctx, w.cancel = context.WithCancel(parentCtx)
	w.wg.Add(1)
	go w.run()
}

func (w *Worker) stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) stopAndWait() {
	w.currentJobMu.Lock()
	if w.jobCancel != nil {
		w.jobCancel()
	}
	w.currentJobMu.Unlock()
	w.stop()
}

// run is the worker's main loop (spec.md §4.11 worker loop: "configurable
// worker count ... cooperative stop-flag checking").
func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		if w.pool.IsPaused() {
			if !w.sleep(500 * time.Millisecond) {
				return
			}
			continue
		}
		if !w.pool.isScheduleAllowed() {
			if !w.sleep(30 * time.Second) {
				return
			}
			continue
		}

		job, err := w.queue.Claim(w.id)
		if err != nil {
			logger.Warn("jobs: claim failed", "worker", w.id, "error", err)
			if !w.sleep(time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !w.sleep(500 * time.Millisecond) {
				return
			}
			continue
		}

		w.processJob(*job)
	}
}

func (w *Worker) sleep(d time.Duration) bool {
	select {
	case <-w.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (p *WorkerPool) isScheduleAllowed() bool {
	if !p.cfg.ScheduleEnabled {
		return true
	}
	hour := time.Now().Hour()
	start, end := p.cfg.ScheduleStartHour, p.cfg.ScheduleEndHour
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	// Window wraps midnight, e.g. 22 -> 6.
	return hour >= start || hour < end
}
