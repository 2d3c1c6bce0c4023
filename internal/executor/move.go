package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/randomparity/vpo/internal/plan"
)

// isCrossDevice reports whether err is the "invalid cross-device link"
// failure os.Rename returns when src and dst live on different
// filesystems — the only case that should fall back to copy+unlink.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// executeMove applies a move action (spec.md §4.9): the destination
// path is computed elsewhere (internal/nameparse + the action's
// DestinationTemplate/Fallback) and handed to us pre-resolved as
// a.SourcePath, which doubles as the move action's target path field.
// Parent directories are created, then an atomic rename is attempted;
// a cross-filesystem move falls back to copy+fsync+unlink.
func (e *Executor) executeMove(srcPath string, a plan.Action, sizeBefore int64) (*Result, error) {
	dest := a.SourcePath
	if dest == "" {
		return nil, errors.New("executor: move action missing destination path")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("executor: create destination dir: %w", err)
	}

	if err := os.Rename(srcPath, dest); err == nil {
		return &Result{Success: true, Message: "moved", OutputPath: dest, SizeBefore: sizeBefore, SizeAfter: sizeBefore}, nil
	} else if !isCrossDevice(err) {
		return nil, fmt.Errorf("executor: rename move: %w", err)
	}

	if err := crossFilesystemMove(srcPath, dest); err != nil {
		return nil, fmt.Errorf("executor: cross-filesystem move: %w", err)
	}

	return &Result{Success: true, Message: "moved across filesystems", OutputPath: dest, SizeBefore: sizeBefore, SizeAfter: sizeBefore}, nil
}

func crossFilesystemMove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("fsync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}

	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return os.Remove(src)
}
