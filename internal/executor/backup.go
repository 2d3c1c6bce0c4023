package executor

import (
	"fmt"
	"io"
	"os"
)

// takeBackup copies path to its sibling .vpo-backup file, preserving
// mtime and permissions (spec.md §4.9's "copy-2" discipline — named
// after Python's shutil.copy2, which the original implementation uses).
func takeBackup(path string) (string, error) {
	backupPath := path + backupSuffix
	if err := copy2(path, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

// restoreBackup is safe_restore_from_backup: copy the backup back over
// path. Restoration failure must never mask the original error — callers
// log it and propagate the original failure instead.
func restoreBackup(backupPath, path string) error {
	return copy2(backupPath, path)
}

func copy2(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
