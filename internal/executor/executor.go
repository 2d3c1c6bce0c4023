// Package executor runs a Plan against a single file inside a
// file-scoped critical section: advisory lock, free-space guard,
// backup-before-rewrite, and atomic replace on success (spec.md §4.9).
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/plan"
)

// ErrFileLocked is returned when the sibling .vpo-lock file is already
// held by another process. The executor never waits for a lock.
var ErrFileLocked = errors.New("executor: file is locked by another operation")

// ErrInsufficientSpace is returned when the target filesystem lacks the
// configured minimum free percentage plus the estimated output headroom.
var ErrInsufficientSpace = errors.New("executor: insufficient free disk space")

const (
	lockSuffix   = ".vpo-lock"
	backupSuffix = ".vpo-backup"
)

// Result mirrors spec.md §4.9's ExecutorResult.
type Result struct {
	Success       bool
	Message       string
	OutputPath    string
	BackupPath    string
	TracksCreated int
	SizeBefore    int64
	SizeAfter     int64
	EncoderType   string
	EncodingFPS   float64
}

// Config tunes the executor's disk-guard and backup-retention behavior.
type Config struct {
	MinFreePercent float64 // minimum free space required on the target filesystem, 0-100
	KeepBackups    bool    // if true, .vpo-backup is retained after a successful op
}

// DefaultConfig matches the teacher's conservative defaults: 10% headroom,
// backups discarded once an operation completes successfully.
func DefaultConfig() Config {
	return Config{MinFreePercent: 10, KeepBackups: false}
}

// Executor applies Plans to files on disk, dispatching each action kind
// to a ToolRunner (spec.md §4.9's dispatch table).
type Executor struct {
	cfg    Config
	runner ToolRunner
}

// New constructs an Executor. runner performs the actual media-tool
// invocations; see ToolRunner for the seam.
func New(cfg Config, runner ToolRunner) *Executor {
	return &Executor{cfg: cfg, runner: runner}
}

// Execute runs p against the file at path. containerFormat is the
// file's current container format, used only for logging — the
// evaluator has already folded MKV-family-vs-not into p.RequiresRemux.
func (e *Executor) Execute(ctx context.Context, path string, p plan.Plan, containerFormat string) (*Result, error) {
	if p.IsEmpty() && !hasMoveAction(p) {
		return &Result{Success: true, Message: "no-op plan"}, nil
	}

	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("executor: stat input: %w", err)
	}
	sizeBefore := info.Size()

	if moveAction, ok := findMoveAction(p); ok {
		return e.executeMove(path, moveAction, sizeBefore)
	}

	if err := checkFreeSpace(path, sizeBefore, p.RequiresRemux, e.cfg.MinFreePercent); err != nil {
		return nil, err
	}

	if !p.RequiresRemux {
		return e.executeMetadataOnly(ctx, path, p, sizeBefore)
	}
	return e.executeStructural(ctx, path, p, containerFormat, sizeBefore)
}

func (e *Executor) executeMetadataOnly(ctx context.Context, path string, p plan.Plan, sizeBefore int64) (*Result, error) {
	backupPath, err := takeBackup(path)
	if err != nil {
		return nil, fmt.Errorf("executor: backup before metadata edit: %w", err)
	}
	defer e.finalizeBackup(backupPath, &err)

	if err = e.runner.EditMetadata(ctx, path, p); err != nil {
		if restoreErr := restoreBackup(backupPath, path); restoreErr != nil {
			logger.Error("executor: restore after metadata edit failure", "error", restoreErr)
		}
		return nil, fmt.Errorf("executor: metadata edit: %w", err)
	}

	info, statErr := os.Stat(path)
	sizeAfter := sizeBefore
	if statErr == nil {
		sizeAfter = info.Size()
	}

	return &Result{
		Success: true, Message: "metadata edited in place",
		OutputPath: path, BackupPath: backupPath,
		SizeBefore: sizeBefore, SizeAfter: sizeAfter,
	}, nil
}

func (e *Executor) executeStructural(ctx context.Context, path string, p plan.Plan, containerFormat string, sizeBefore int64) (result *Result, err error) {
	dir := filepath.Dir(path)
	ext := targetExtension(p, path)
	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.vpo-tmp%s", filepath.Base(path), ext))

	backupPath, err := takeBackup(path)
	if err != nil {
		return nil, fmt.Errorf("executor: backup before structural op: %w", err)
	}
	defer e.finalizeBackup(backupPath, &err)
	defer os.Remove(tempPath)

	tracksCreated := 0
	for _, a := range p.Actions {
		if a.Kind == plan.ActionSynthesizeAudio {
			tracksCreated++
		}
	}

	logger.Debug("executor: starting remux", "path", path, "container", containerFormat, "estimated_output_size", estimateOutputSize(sizeBefore, p.Actions))
	if err = e.runner.Remux(ctx, path, tempPath, p); err != nil {
		if restoreErr := restoreBackup(backupPath, path); restoreErr != nil {
			logger.Error("executor: restore after remux failure", "error", restoreErr)
		}
		return nil, fmt.Errorf("executor: remux: %w", err)
	}

	finalPath := path
	if ext != filepath.Ext(path) {
		finalPath = strTrimExt(path) + ext
	}
	if err = atomicReplace(tempPath, finalPath); err != nil {
		if restoreErr := restoreBackup(backupPath, path); restoreErr != nil {
			logger.Error("executor: restore after atomic replace failure", "error", restoreErr)
		}
		return nil, fmt.Errorf("executor: atomic replace: %w", err)
	}

	info, statErr := os.Stat(finalPath)
	sizeAfter := sizeBefore
	if statErr == nil {
		sizeAfter = info.Size()
	}

	return &Result{
		Success: true, Message: "structural plan applied",
		OutputPath: finalPath, BackupPath: backupPath,
		TracksCreated: tracksCreated,
		SizeBefore:    sizeBefore, SizeAfter: sizeAfter,
	}, nil
}

// finalizeBackup removes the backup on success unless configured to
// keep it, leaving it in place whenever *errp is non-nil so a later
// manual recovery is possible.
func (e *Executor) finalizeBackup(backupPath string, errp *error) {
	if errp != nil && *errp != nil {
		return
	}
	if e.cfg.KeepBackups {
		return
	}
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("executor: failed to remove backup", "path", backupPath, "error", err)
	}
}

func hasMoveAction(p plan.Plan) bool {
	_, ok := findMoveAction(p)
	return ok
}

func findMoveAction(p plan.Plan) (plan.Action, bool) {
	for _, a := range p.Actions {
		if a.Kind == plan.ActionMove {
			return a, true
		}
	}
	return plan.Action{}, false
}

// targetExtension returns the file extension the structural op should
// produce: an explicit container change or remux target container wins,
// otherwise the original path's own extension is kept.
func targetExtension(p plan.Plan, originalPath string) string {
	if p.ContainerChange != nil && p.ContainerChange.TargetFormat != "" {
		return "." + p.ContainerChange.TargetFormat
	}
	for _, a := range p.Actions {
		if a.Kind == plan.ActionRemux && a.TargetContainer != "" {
			return "." + a.TargetContainer
		}
	}
	return filepath.Ext(originalPath)
}

func strTrimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}
