package daemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/executor"
	"github.com/randomparity/vpo/internal/jobs"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/pluginbus"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
	"github.com/randomparity/vpo/internal/probe"
	"github.com/randomparity/vpo/internal/scanner"
	"github.com/randomparity/vpo/internal/workflow"
)

type stubToolRunner struct{}

func (stubToolRunner) EditMetadata(ctx context.Context, path string, p plan.Plan) error {
	return nil
}

func (stubToolRunner) Remux(ctx context.Context, inputPath, outputPath string, p plan.Plan) error {
	return os.WriteFile(outputPath, []byte("remuxed"), 0o644)
}

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunnerDispatchesScan(t *testing.T) {
	store := openTestStore(t)
	sc := scanner.New(store, probe.NewProber("ffprobe"), pluginbus.New(), scanner.PruneMarkMissing)

	r := &Runner{Store: store, Scanner: sc, LibraryRoots: []string{t.TempDir()}}

	result, err := r.Run(context.Background(), jobs.JobView{JobType: domain.JobTypeScan}, func(float64, string) {})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SummaryJSON == "" {
		t.Fatal("expected a non-empty scan summary")
	}
}

func TestRunnerDispatchesProcess(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	fileID, err := store.UpsertFile(domain.File{
		Path: path, Filename: "movie.mkv", Directory: dir, Extension: ".mkv",
		ContainerFormat: "mkv", ScanStatus: domain.ScanStatusOK,
	})
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}

	proc := workflow.New(workflow.Dependencies{
		Store:    store,
		Executor: executor.New(executor.DefaultConfig(), stubToolRunner{}),
	})

	doc := policy.Document{
		SchemaVersion: policy.CurrentSchemaVersion,
		Phases: []policy.PhaseDefinition{
			{Name: policy.PhaseApply, SkipWhen: []rules.Condition{{Kind: rules.KindContainer, Containers: []string{"mp4"}}}},
		},
		Workflow: policy.WorkflowConfig{Phases: []policy.PhaseName{policy.PhaseApply}},
	}
	policyJSON, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal policy: %v", err)
	}

	r := &Runner{Store: store, Processor: proc}

	result, err := r.Run(context.Background(), jobs.JobView{
		FileID: fileID, FilePath: path, JobType: domain.JobTypeProcess, PolicyJSON: string(policyJSON),
	}, func(float64, string) {})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SummaryJSON == "" {
		t.Fatal("expected a non-empty process summary")
	}
}

func TestRunnerRejectsUnknownJobType(t *testing.T) {
	r := &Runner{}
	_, err := r.Run(context.Background(), jobs.JobView{JobType: "bogus"}, func(float64, string) {})
	if err == nil {
		t.Fatal("expected an error for an unknown job type")
	}
}
