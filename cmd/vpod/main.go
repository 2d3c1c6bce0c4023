package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/config"
	"github.com/randomparity/vpo/internal/configwatch"
	"github.com/randomparity/vpo/internal/daemon"
	"github.com/randomparity/vpo/internal/executor"
	"github.com/randomparity/vpo/internal/httpapi"
	"github.com/randomparity/vpo/internal/jobs"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/metrics"
	"github.com/randomparity/vpo/internal/pluginbus"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/probe"
	"github.com/randomparity/vpo/internal/scanner"
	"github.com/randomparity/vpo/internal/toolcache"
	"github.com/randomparity/vpo/internal/transcription"
	"github.com/randomparity/vpo/internal/workflow"
)

// cmd/vpod is a thin wiring layer: load config, construct the processing
// core, and hand every long-running piece to a suture supervisor. The CLI
// surface stops at --config/--refresh-tools — argument parsing and output
// formatting are explicitly out of scope (spec.md §1).
func main() {
	configPath := flag.String("config", "", "path to config file (default: $VPO_CONFIG or ~/.vpo/config.yaml)")
	refreshTools := flag.Bool("refresh-tools", false, "force a re-probe of ffmpeg/ffprobe capabilities on startup")
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		if env := os.Getenv("VPO_CONFIG"); env != "" {
			cfgPath = env
		} else {
			home, _ := os.UserHomeDir()
			cfgPath = filepath.Join(home, ".vpo", "config.yaml")
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.LogLevel)
	logger.Info("vpod starting", "config", cfgPath, "data_dir", cfg.DataDir)

	store, err := catalog.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer store.Close()

	doc, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		log.Fatalf("load policy %s: %v", cfg.PolicyPath, err)
	}

	tools := toolcache.New(filepath.Join(cfg.DataDir, "toolcache.json"))
	if *refreshTools || !tools.Detected() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := tools.Refresh(ctx, map[string]string{
			"ffmpeg":  cfg.FFmpegPath,
			"ffprobe": cfg.FFprobePath,
		})
		cancel()
		if err != nil {
			logger.Warn("tool capability refresh failed", "error", err)
		}
	}

	prober := probe.NewProber(cfg.FFprobePath)
	bus := pluginbus.New()
	pruneMode := scanner.PruneMode(cfg.Processing.PruneMode)
	sc := scanner.New(store, prober, bus, pruneMode)

	toolRunner := executor.NewCommandToolRunner(cfg.FFmpegPath, "")
	exec := executor.New(executor.DefaultConfig(), toolRunner)

	proc := workflow.New(workflow.Dependencies{
		Store:                 store,
		Executor:              exec,
		TranscriptionRegistry: transcription.NewRegistry(),
	})

	queue := jobs.NewQueue(store)
	runner := &daemon.Runner{
		Store:        store,
		Processor:    proc,
		Scanner:      sc,
		LibraryRoots: cfg.LibraryRoots,
		Incremental:  cfg.Processing.IncrementalScan,
	}
	pool := jobs.NewWorkerPool(queue, runner, jobs.Config{
		Workers:           cfg.Jobs.Workers,
		RetentionDays:     cfg.Jobs.RetentionDays,
		ScheduleEnabled:   cfg.Jobs.ScheduleEnabled,
		ScheduleStartHour: cfg.Jobs.ScheduleStartHour,
		ScheduleEndHour:   cfg.Jobs.ScheduleEndHour,
	})

	watcher := configwatch.New(cfgPath, cfg, applyConfigChange)

	handler := httpapi.NewHandler(store, queue, sc, watcher, tools)
	router := httpapi.NewRouter(handler, false)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port),
		Handler: router,
	}

	eventHook := (&sutureslog.Handler{Logger: logger.Log}).MustHook()
	super := suture.New("vpod", suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})

	super.Add(&daemon.HTTPServerService{Server: server, ShutdownTimeout: 10 * time.Second})
	super.Add(&daemon.WorkerPoolService{Pool: pool})
	super.Add(&daemon.RetentionService{Queue: queue, RetentionDays: cfg.Jobs.RetentionDays, Interval: time.Hour})
	super.Add(&daemon.ConfigWatchService{Watcher: watcher})
	super.Add(&metrics.Collector{Queue: queue, Interval: 15 * time.Second})
	super.Add(&daemon.ScanLoopService{
		Store:        store,
		Queue:        queue,
		Scanner:      sc,
		LibraryRoots: cfg.LibraryRoots,
		Incremental:  cfg.Processing.IncrementalScan,
		Policy:       *doc,
		PolicyName:   cfg.PolicyPath,
		Interval:     15 * time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())
		handler.MarkShuttingDown()
		cancel()
	}()

	errCh := super.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("supervisor error", "error", err)
		}
	}

	logger.Info("vpod stopped")
}

// applyConfigChange is configwatch's Applier. It applies only the log
// level. The other fields configwatch classifies as hot-reloadable
// (jobs.workers, retention, schedule, processing and transcription
// settings) are not applied here; like the restart-required fields
// (bind address, port), they take effect only after a restart.
func applyConfigChange(cfg *config.Config, diffs []configwatch.Diff) {
	for _, d := range diffs {
		if d.Field == "log_level" {
			logger.SetLevel(cfg.LogLevel)
		}
	}
}
