package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/randomparity/vpo/internal/plan"
)

type fakeRunner struct {
	editMetadataCalls int
	remuxCalls        int
	failRemux         bool
	writeOutput       string
}

func (f *fakeRunner) EditMetadata(ctx context.Context, path string, p plan.Plan) error {
	f.editMetadataCalls++
	return nil
}

func (f *fakeRunner) Remux(ctx context.Context, inputPath, outputPath string, p plan.Plan) error {
	f.remuxCalls++
	if f.failRemux {
		return os.ErrInvalid
	}
	content := f.writeOutput
	if content == "" {
		content = "remuxed"
	}
	return os.WriteFile(outputPath, []byte(content), 0o644)
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func TestExecuteEmptyPlanIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	runner := &fakeRunner{}
	e := New(DefaultConfig(), runner)

	res, err := e.Execute(context.Background(), path, plan.Plan{}, "mkv")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success || runner.editMetadataCalls != 0 || runner.remuxCalls != 0 {
		t.Fatalf("expected no-op, got %+v", res)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "original" {
		t.Fatalf("file was modified: %q", content)
	}
}

func TestExecuteMetadataOnlyEditsInPlaceAndCleansBackup(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	runner := &fakeRunner{}
	e := New(DefaultConfig(), runner)

	p := plan.Plan{
		Actions:       []plan.Action{{Kind: plan.ActionSetDefault, TrackIndex: 1, BoolValue: true}},
		RequiresRemux: false,
	}
	res, err := e.Execute(context.Background(), path, p, "mkv")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success || runner.editMetadataCalls != 1 {
		t.Fatalf("expected one metadata edit, got %+v", res)
	}
	if _, err := os.Stat(path + backupSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected backup to be cleaned up, stat err = %v", err)
	}
}

func TestExecuteStructuralReplacesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	runner := &fakeRunner{writeOutput: "new content"}
	e := New(DefaultConfig(), runner)

	p := plan.Plan{
		Actions:       []plan.Action{{Kind: plan.ActionReorder, NewIndexSequence: []int{1, 0}}},
		RequiresRemux: true,
	}
	res, err := e.Execute(context.Background(), path, p, "mkv")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success || runner.remuxCalls != 1 {
		t.Fatalf("expected one remux, got %+v", res)
	}

	content, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(content) != "new content" {
		t.Fatalf("output content = %q", content)
	}
	if _, err := os.Stat(path + backupSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected backup cleaned up, stat err = %v", err)
	}
}

func TestExecuteStructuralFailureRestoresBackup(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	runner := &fakeRunner{failRemux: true}
	e := New(DefaultConfig(), runner)

	p := plan.Plan{
		Actions:       []plan.Action{{Kind: plan.ActionRemux}},
		RequiresRemux: true,
	}
	_, err := e.Execute(context.Background(), path, p, "mkv")
	if err == nil {
		t.Fatal("expected error from failing remux")
	}

	content, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read original: %v", readErr)
	}
	if string(content) != "original" {
		t.Fatalf("original file was not restored: %q", content)
	}
}

func TestExecuteMoveRenamesWithinFilesystem(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")
	destDir := filepath.Join(dir, "archive")
	dest := filepath.Join(destDir, "movie.mkv")

	runner := &fakeRunner{}
	e := New(DefaultConfig(), runner)

	p := plan.Plan{Actions: []plan.Action{{Kind: plan.ActionMove, SourcePath: dest}}}
	res, err := e.Execute(context.Background(), path, p, "mkv")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.OutputPath != dest {
		t.Fatalf("output path = %q, want %q", res.OutputPath, dest)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected destination to exist: %v", err)
	}
}

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	l1, err := acquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer l1.release()

	if _, err := acquireLock(path); err != ErrFileLocked {
		t.Fatalf("expected ErrFileLocked, got %v", err)
	}
}
