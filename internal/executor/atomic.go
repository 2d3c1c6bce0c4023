package executor

import (
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// atomicReplace fsyncs tempPath and then replaces finalPath with its
// contents in a single rename (spec.md §4.9's "final step of every
// structural op is a single rename... temp files are fsynced"). The bytes
// of tempPath are copied into a renameio PendingFile created beside
// finalPath, which CloseAtomicallyReplace fsyncs and renames over
// finalPath; tempPath itself is not moved.
func atomicReplace(tempPath, finalPath string) error {
	f, err := os.Open(tempPath)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	t, err := renameio.TempFile("", finalPath)
	if err != nil {
		return fmt.Errorf("prepare atomic rename: %w", err)
	}
	defer t.Cleanup()

	in, err := os.Open(tempPath)
	if err != nil {
		return fmt.Errorf("reopen temp file: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(t, in); err != nil {
		return fmt.Errorf("stage final file: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
