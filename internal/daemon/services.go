package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/configwatch"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/jobs"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/scanner"
)

// HTTPServerService adapts an *http.Server's blocking ListenAndServe to
// suture's context-aware Serve, mirroring the pack's own
// supervisor/services.HTTPServerService wrapper.
type HTTPServerService struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
}

func (s *HTTPServerService) Serve(ctx context.Context) error {
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("daemon: http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("daemon: http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// WorkerPoolService adapts *jobs.WorkerPool's Start/Stop to suture.Service.
type WorkerPoolService struct {
	Pool *jobs.WorkerPool
}

func (s *WorkerPoolService) Serve(ctx context.Context) error {
	s.Pool.Start()
	<-ctx.Done()
	s.Pool.Stop()
	return ctx.Err()
}

// RetentionService runs the job-retention sweep on a fixed interval
// (spec.md §4.11).
type RetentionService struct {
	Queue         *jobs.Queue
	RetentionDays int
	Interval      time.Duration
}

func (s *RetentionService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	jobs.RunRetentionSweeper(ctx, s.Queue, s.RetentionDays, interval)
	return ctx.Err()
}

// ConfigWatchService adapts *configwatch.Watcher's Start/Stop to
// suture.Service.
type ConfigWatchService struct {
	Watcher *configwatch.Watcher
}

func (s *ConfigWatchService) Serve(ctx context.Context) error {
	if err := s.Watcher.Start(ctx); err != nil {
		return fmt.Errorf("daemon: config watch: %w", err)
	}
	<-ctx.Done()
	s.Watcher.Stop()
	return ctx.Err()
}

// ScanLoopService periodically scans the library and enqueues process
// jobs for every file scanned OK that has no open job already, so the
// daemon keeps the catalog and the queue moving without needing a CLI
// trigger (spec.md §1 "CLI command surface ... out of scope" for the
// core — the daemon supplies its own driving loop instead).
type ScanLoopService struct {
	Store        *catalog.Store
	Queue        *jobs.Queue
	Scanner      *scanner.Scanner
	LibraryRoots []string
	Incremental  bool
	Policy       policy.Document
	PolicyName   string
	Interval     time.Duration
}

func (s *ScanLoopService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	run := func() {
		if _, err := s.Scanner.Scan(ctx, s.LibraryRoots, s.Incremental, nil); err != nil {
			logger.Warn("daemon: scan loop failed", "error", err)
			return
		}
		if err := s.enqueueScannedFiles(); err != nil {
			logger.Warn("daemon: enqueue after scan failed", "error", err)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}

func (s *ScanLoopService) enqueueScannedFiles() error {
	files, err := s.Store.ListFiles()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	pending, err := s.Store.FileIDsWithOpenJobs()
	if err != nil {
		return fmt.Errorf("list open jobs: %w", err)
	}

	policyJSON, err := json.Marshal(s.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	for _, f := range files {
		if f.ScanStatus != domain.ScanStatusOK || pending[f.ID] {
			continue
		}
		if _, err := s.Queue.Enqueue(domain.Job{
			FileID:     f.ID,
			FilePath:   f.Path,
			JobType:    domain.JobTypeProcess,
			PolicyName: s.PolicyName,
			PolicyJSON: string(policyJSON),
		}); err != nil {
			logger.Warn("daemon: enqueue failed", "file", f.Path, "error", err)
		}
	}
	return nil
}
