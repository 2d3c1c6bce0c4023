package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/executor"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
)

type fakeRunner struct {
	editCalls  int
	remuxCalls int
}

func (f *fakeRunner) EditMetadata(ctx context.Context, path string, p plan.Plan) error {
	f.editCalls++
	return nil
}

func (f *fakeRunner) Remux(ctx context.Context, inputPath, outputPath string, p plan.Plan) error {
	f.remuxCalls++
	return os.WriteFile(outputPath, []byte("remuxed"), 0o644)
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

func newTestProcessor(runner executor.ToolRunner) *Processor {
	return New(Dependencies{Executor: executor.New(executor.DefaultConfig(), runner)})
}

func videoTrack() domain.Track {
	return domain.Track{TrackIndex: 0, Kind: domain.TrackKindVideo, Codec: "h264"}
}

func audioTrack(index int, lang string) domain.Track {
	return domain.Track{TrackIndex: index, Kind: domain.TrackKindAudio, Codec: "aac", Language: lang}
}

func TestProcessFileSkipsPhaseOnSkipWhen(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	doc := policy.Document{
		SchemaVersion: policy.CurrentSchemaVersion,
		Phases: []policy.PhaseDefinition{
			{
				Name: policy.PhaseApply,
				SkipWhen: []rules.Condition{
					{Kind: rules.KindContainer, Containers: []string{"mkv"}},
				},
			},
		},
		Workflow: policy.WorkflowConfig{Phases: []policy.PhaseName{policy.PhaseApply}},
	}

	runner := &fakeRunner{}
	p := newTestProcessor(runner)
	result, err := p.ProcessFile(context.Background(), doc, Input{
		File:   domain.File{Path: path, ContainerFormat: "mkv"},
		Tracks: []domain.Track{videoTrack()},
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.PhasesSkipped != 1 || result.PhasesCompleted != 0 {
		t.Fatalf("expected phase skipped, got %+v", result)
	}
	if runner.editCalls != 0 || runner.remuxCalls != 0 {
		t.Fatalf("runner should not have been invoked, got %+v", runner)
	}
	pr := result.PhaseResults[0]
	if pr.SkipReason == nil || pr.SkipReason.Type != SkipReasonCondition {
		t.Fatalf("expected a CONDITION skip reason, got %+v", pr.SkipReason)
	}
}

func TestProcessFileAppliesRuleTrackFlagChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	doc := policy.Document{
		SchemaVersion: policy.CurrentSchemaVersion,
		Phases: []policy.PhaseDefinition{
			{
				Name: policy.PhaseApply,
				Rules: &rules.Rules{
					Match: rules.MatchFirst,
					Items: []rules.Rule{{
						Name: "force-english-default",
						When: rules.Condition{Kind: rules.KindCodecMatches, Codecs: []string{"aac"}},
						Then: []rules.Action{{Kind: rules.ActionSetTrackFlag, TrackIndex: 1, FlagName: "default", FlagValue: true}},
					}},
				},
			},
		},
		Workflow: policy.WorkflowConfig{Phases: []policy.PhaseName{policy.PhaseApply}},
	}

	runner := &fakeRunner{}
	p := newTestProcessor(runner)
	result, err := p.ProcessFile(context.Background(), doc, Input{
		File:   domain.File{Path: path, ContainerFormat: "mkv"},
		Tracks: []domain.Track{videoTrack(), audioTrack(1, "eng")},
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if !result.Success || result.PhasesCompleted != 1 {
		t.Fatalf("expected one completed phase, got %+v", result)
	}
	if runner.editCalls != 1 {
		t.Fatalf("expected metadata edit from rule-derived action, got %d calls", runner.editCalls)
	}
}

func TestProcessFileOnErrorFailStopsProcessing(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	transcodePhase := policy.PhaseDefinition{Name: policy.PhaseTranscode}
	transcodePhase.Transcode.Video = policy.TranscodeVideoConfig{Codec: "hevc"}

	doc := policy.Document{
		SchemaVersion: policy.CurrentSchemaVersion,
		Phases: []policy.PhaseDefinition{
			transcodePhase,
			{Name: policy.PhaseTimestamp, Timestamp: policy.FileTimestampConfig{Mode: policy.TimestampModeNow}},
		},
		Workflow: policy.WorkflowConfig{
			Phases:  []policy.PhaseName{policy.PhaseTranscode, policy.PhaseTimestamp},
			OnError: policy.OnErrorFail,
		},
	}

	p := New(Dependencies{}) // no executor configured -> transcode phase body errors
	result, err := p.ProcessFile(context.Background(), doc, Input{
		File:   domain.File{Path: path, ContainerFormat: "mkv"},
		Tracks: []domain.Track{videoTrack()},
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure, got %+v", result)
	}
	if len(result.PhaseResults) != 1 {
		t.Fatalf("expected processing to stop after the failing phase, got %d results", len(result.PhaseResults))
	}
}

func TestProcessFileOnErrorContinueRunsRemainingPhases(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "movie.mkv", "original")

	transcodePhase := policy.PhaseDefinition{Name: policy.PhaseTranscode, OnError: policy.OnErrorContinue}
	transcodePhase.Transcode.Video = policy.TranscodeVideoConfig{Codec: "hevc"}

	doc := policy.Document{
		SchemaVersion: policy.CurrentSchemaVersion,
		Phases: []policy.PhaseDefinition{
			transcodePhase,
			{Name: policy.PhaseTimestamp, Timestamp: policy.FileTimestampConfig{Mode: policy.TimestampModeNow}},
		},
		Workflow: policy.WorkflowConfig{Phases: []policy.PhaseName{policy.PhaseTranscode, policy.PhaseTimestamp}},
	}

	p := New(Dependencies{}) // no executor -> transcode fails, continue lets timestamp still run
	result, err := p.ProcessFile(context.Background(), doc, Input{
		File:   domain.File{Path: path, ContainerFormat: "mkv"},
		Tracks: []domain.Track{videoTrack()},
	})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if !result.Success {
		t.Fatalf("continue mode should not fail the overall result, got %+v", result)
	}
	if len(result.PhaseResults) != 2 {
		t.Fatalf("expected both phases to run, got %d results", len(result.PhaseResults))
	}
	if result.PhasesFailed != 1 || result.PhasesCompleted != 1 {
		t.Fatalf("expected one failed and one completed phase, got %+v", result)
	}
}

func TestEvaluateTranscodeSkipIfRequiresAllConfiguredLeaves(t *testing.T) {
	sc := policy.SkipCondition{
		CodecMatches:     []string{"hevc", "h265"},
		ResolutionWithin: policy.Res1080p,
		BitrateUnder:     "10M",
	}

	// 6,000,000 bytes over 8s == 6 Mbps, under the 10M ceiling.
	in := rules.EvalInput{
		Tracks:          []domain.Track{{Kind: domain.TrackKindVideo, Codec: "hevc", Width: 1920, Height: 1080}},
		SizeBytes:       6_000_000,
		DurationSeconds: 8,
	}

	skip, reason := evaluateTranscodeSkipIf(sc, in)
	if !skip {
		t.Fatalf("expected skip_if to match all three leaves, got false: %s", reason)
	}
}

func TestEvaluateTranscodeSkipIfFailsWhenBitrateTooHigh(t *testing.T) {
	sc := policy.SkipCondition{
		CodecMatches:     []string{"hevc"},
		ResolutionWithin: policy.Res1080p,
		BitrateUnder:     "1M",
	}

	in := rules.EvalInput{
		Tracks:          []domain.Track{{Kind: domain.TrackKindVideo, Codec: "hevc", Width: 1920, Height: 1080}},
		SizeBytes:       50_000_000,
		DurationSeconds: 8,
	}

	skip, _ := evaluateTranscodeSkipIf(sc, in)
	if skip {
		t.Fatal("expected skip_if to fail when the bitrate exceeds the configured ceiling")
	}
}

func TestClassifyErrorBuckets(t *testing.T) {
	if got := ClassifyError(os.ErrNotExist); got != ErrorPermanent {
		t.Fatalf("ErrNotExist: got %s, want PERMANENT", got)
	}
	if got := ClassifyError(executor.ErrFileLocked); got != ErrorTransient {
		t.Fatalf("ErrFileLocked: got %s, want TRANSIENT", got)
	}
	if got := ClassifyError(policy.ErrSchemaVersionTooOld); got != ErrorPermanent {
		t.Fatalf("ErrSchemaVersionTooOld: got %s, want PERMANENT", got)
	}
}
