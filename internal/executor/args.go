package executor

import (
	"fmt"
	"strconv"

	"github.com/randomparity/vpo/internal/plan"
)

// buildMetadataArgs translates the plan's metadata-only actions into
// mkvpropedit flags. Grounded on the teacher's BuildPresetArgs idiom in
// ffmpeg/presets.go: one function, one switch over action kind, plain
// string slices, no templating.
func buildMetadataArgs(path string, p plan.Plan) []string {
	args := []string{path}
	for _, a := range p.Actions {
		switch a.Kind {
		case plan.ActionSetDefault:
			args = append(args, "--edit", trackSelector(a.TrackIndex), "--set", fmt.Sprintf("flag-default=%d", boolFlag(a.BoolValue)))
		case plan.ActionSetForced:
			args = append(args, "--edit", trackSelector(a.TrackIndex), "--set", fmt.Sprintf("flag-forced=%d", boolFlag(a.BoolValue)))
		case plan.ActionSetLanguage:
			args = append(args, "--edit", trackSelector(a.TrackIndex), "--set", "language="+a.Code)
		case plan.ActionSetTitle:
			args = append(args, "--edit", trackSelector(a.TrackIndex), "--set", "name="+a.Text)
		case plan.ActionSetContainerTag:
			args = append(args, "--edit", "info", "--set", a.TagKey+"="+a.TagValue)
		}
	}
	return args
}

// buildRemuxArgs translates the full plan into ffmpeg stream-mapping and
// codec arguments. Grounded on transcode.go's input/output arg split
// (inputArgs before -i, outputArgs after) generalized from a fixed
// preset to an arbitrary action list.
func buildRemuxArgs(inputPath, outputPath string, p plan.Plan) []string {
	args := []string{"-y", "-i", inputPath}

	if order, ok := reorderSequence(p); ok {
		for _, idx := range order {
			args = append(args, "-map", fmt.Sprintf("0:%d", idx))
		}
	} else {
		args = append(args, "-map", "0")
	}

	for _, d := range p.TrackDispositions {
		if d.Disposition == plan.DispositionRemove {
			args = append(args, "-map", fmt.Sprintf("-0:%d", d.TrackIndex))
		}
	}

	args = append(args, "-c", "copy")

	for _, a := range p.Actions {
		switch a.Kind {
		case plan.ActionSetDefault:
			args = append(args, fmt.Sprintf("-disposition:%d", a.TrackIndex), dispositionFlag("default", a.BoolValue))
		case plan.ActionSetForced:
			args = append(args, fmt.Sprintf("-disposition:%d", a.TrackIndex), dispositionFlag("forced", a.BoolValue))
		case plan.ActionSetLanguage:
			args = append(args, fmt.Sprintf("-metadata:s:%d", a.TrackIndex), "language="+a.Code)
		case plan.ActionSetTitle:
			args = append(args, fmt.Sprintf("-metadata:s:%d", a.TrackIndex), "title="+a.Text)
		case plan.ActionTranscodeVideo:
			args = append(args, fmt.Sprintf("-c:%d", a.SourceTrackIndex), a.TargetCodec)
			if a.CRF != nil {
				args = append(args, fmt.Sprintf("-crf:%d", a.SourceTrackIndex), strconv.Itoa(*a.CRF))
			}
			if a.FilterChain != "" {
				args = append(args, fmt.Sprintf("-filter:%d", a.SourceTrackIndex), a.FilterChain)
			}
		case plan.ActionTranscodeAudio:
			args = append(args, fmt.Sprintf("-c:%d", a.SourceTrackIndex), a.TargetCodec)
			if a.TargetChannels > 0 {
				args = append(args, fmt.Sprintf("-ac:%d", a.SourceTrackIndex), strconv.Itoa(a.TargetChannels))
			}
			if a.TargetBitrate != "" {
				args = append(args, fmt.Sprintf("-b:%d", a.SourceTrackIndex), a.TargetBitrate)
			}
		case plan.ActionSetContainerTag:
			args = append(args, "-metadata", a.TagKey+"="+a.TagValue)
		}
	}

	args = append(args, outputPath)
	return args
}

func reorderSequence(p plan.Plan) ([]int, bool) {
	for _, a := range p.Actions {
		if a.Kind == plan.ActionReorder {
			return a.NewIndexSequence, true
		}
	}
	return nil, false
}

func trackSelector(trackIndex int) string {
	return fmt.Sprintf("track:%d", trackIndex+1) // mkvpropedit tracks are 1-based
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dispositionFlag(name string, b bool) string {
	if b {
		return "+" + name
	}
	return "-" + name
}
