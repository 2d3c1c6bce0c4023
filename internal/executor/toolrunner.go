package executor

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sony/gobreaker"

	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/plan"
)

// ToolRunner performs the actual external-media-tool work for each
// structural dispatch branch in spec.md §4.9. Executor only owns the
// critical-section protocol (lock, disk guard, backup, atomic replace);
// a ToolRunner owns everything about invoking the media tool itself.
type ToolRunner interface {
	// EditMetadata applies the plan's non-structural actions (set_default,
	// set_forced, set_language, set_title, set_container_tag) in place,
	// without a full remux. File timestamps are not set here.
	EditMetadata(ctx context.Context, path string, p plan.Plan) error

	// Remux applies the full plan — including any transcode/synthesize
	// actions — writing the result to outputPath, leaving inputPath
	// untouched.
	Remux(ctx context.Context, inputPath, outputPath string, p plan.Plan) error
}

// CommandToolRunner shells out to an external media tool (ffmpeg-
// compatible CLI), mirroring the teacher's exec.CommandContext idiom in
// ffmpeg/transcode.go and ffmpeg/probe.go. Each invocation is wrapped in
// a circuit breaker so a tool that is wedged or consistently failing
// (codec not supported by the installed build, OOM-killed repeatedly)
// stops being retried hot against every queued job.
type CommandToolRunner struct {
	ffmpegPath      string
	mkvpropeditPath string
	breaker         *gobreaker.CircuitBreaker
}

// NewCommandToolRunner constructs a CommandToolRunner. Empty paths fall
// back to looking up "ffmpeg"/"mkvpropedit" on PATH.
func NewCommandToolRunner(ffmpegPath, mkvpropeditPath string) *CommandToolRunner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if mkvpropeditPath == "" {
		mkvpropeditPath = "mkvpropedit"
	}
	st := gobreaker.Settings{
		Name:        "media-tool",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("executor: tool breaker state change", "breaker", name, "from", from, "to", to)
		},
	}
	return &CommandToolRunner{
		ffmpegPath:      ffmpegPath,
		mkvpropeditPath: mkvpropeditPath,
		breaker:         gobreaker.NewCircuitBreaker(st),
	}
}

func (r *CommandToolRunner) EditMetadata(ctx context.Context, path string, p plan.Plan) error {
	args := buildMetadataArgs(path, p)
	_, err := r.breaker.Execute(func() (any, error) {
		cmd := exec.CommandContext(ctx, r.mkvpropeditPath, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("mkvpropedit: %w: %s", err, truncate(out, 2048))
		}
		return nil, nil
	})
	return err
}

func (r *CommandToolRunner) Remux(ctx context.Context, inputPath, outputPath string, p plan.Plan) error {
	args := buildRemuxArgs(inputPath, outputPath, p)
	_, err := r.breaker.Execute(func() (any, error) {
		cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, truncate(out, 2048))
		}
		return nil, nil
	})
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
