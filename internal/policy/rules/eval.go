package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/language"
)

// PluginMetadata is plugin-name -> field -> value, the shape condition
// leaves of kind plugin_metadata read from (spec.md §4.7).
type PluginMetadata map[string]map[string]any

// EvalInput bundles everything a Condition needs to evaluate against one
// file (spec.md §4.7 conditions reference tracks, language/classification
// results, plugin metadata, and container tags).
type EvalInput struct {
	Tracks               []domain.Track
	LanguageResults      map[int64]domain.TranscriptionResult
	ClassificationResults map[int64]domain.TrackClassification
	PluginMetadata       PluginMetadata
	ContainerTags        map[string]string
	ContainerFormat      string
	SizeBytes            int64
	DurationSeconds      float64
}

// evaluateCondition evaluates a single Condition against in, returning
// the boolean result and a human-readable reason for the evaluation
// trace (spec.md §4.7 "a trace of (rule_name, matched, reason)").
func evaluateCondition(c Condition, in EvalInput) (bool, string) {
	switch c.Kind {
	case KindTrackExists:
		return evalTrackExists(c, in)
	case KindContainer:
		format := strings.ToLower(in.ContainerFormat)
		for _, want := range c.Containers {
			if strings.ToLower(want) == format {
				return true, fmt.Sprintf("container %q matches", format)
			}
		}
		return false, fmt.Sprintf("container %q not in %v", format, c.Containers)
	case KindResolution:
		label := resolutionLabel(in.Tracks)
		for _, want := range c.Resolutions {
			if resolutionEquals(want, label) {
				return true, fmt.Sprintf("resolution %q matches", label)
			}
		}
		return false, fmt.Sprintf("resolution %q not in %v", label, c.Resolutions)
	case KindResolutionUnder:
		label := resolutionLabel(in.Tracks)
		ok := resolutionRank(label) < resolutionRank(c.ResolutionUnder)
		return ok, fmt.Sprintf("resolution %q under %q = %v", label, c.ResolutionUnder, ok)
	case KindFileSizeUnder:
		ok := in.SizeBytes < c.SizeBytes
		return ok, fmt.Sprintf("size %d under %d = %v", in.SizeBytes, c.SizeBytes, ok)
	case KindFileSizeOver:
		ok := in.SizeBytes > c.SizeBytes
		return ok, fmt.Sprintf("size %d over %d = %v", in.SizeBytes, c.SizeBytes, ok)
	case KindDurationUnder:
		ok := in.DurationSeconds < c.DurationSeconds
		return ok, fmt.Sprintf("duration %.1f under %.1f = %v", in.DurationSeconds, c.DurationSeconds, ok)
	case KindDurationOver:
		ok := in.DurationSeconds > c.DurationSeconds
		return ok, fmt.Sprintf("duration %.1f over %.1f = %v", in.DurationSeconds, c.DurationSeconds, ok)
	case KindCodecMatches:
		for _, t := range in.Tracks {
			for _, want := range c.Codecs {
				if strings.EqualFold(want, t.Codec) {
					return true, fmt.Sprintf("codec %q matches track %d", t.Codec, t.TrackIndex)
				}
			}
		}
		return false, fmt.Sprintf("no track codec in %v", c.Codecs)
	case KindSubtitleLanguageExists:
		for _, t := range in.Tracks {
			if t.Kind == domain.TrackKindSubtitle && language.Match(t.Language, c.TrackExistsLanguage) {
				return true, fmt.Sprintf("subtitle language %q exists", c.TrackExistsLanguage)
			}
		}
		return false, fmt.Sprintf("no subtitle with language %q", c.TrackExistsLanguage)
	case KindAudioCodecExists:
		for _, t := range in.Tracks {
			if t.Kind == domain.TrackKindAudio && strings.EqualFold(t.Codec, c.TrackExistsCodec) {
				return true, fmt.Sprintf("audio codec %q exists", c.TrackExistsCodec)
			}
		}
		return false, fmt.Sprintf("no audio track with codec %q", c.TrackExistsCodec)
	case KindPluginMetadata:
		return evalPluginMetadata(c, in)
	case KindAnd:
		for _, sub := range c.And {
			ok, reason := evaluateCondition(sub, in)
			if !ok {
				return false, "and: " + reason
			}
		}
		return true, "and: all matched"
	case KindOr:
		for _, sub := range c.Or {
			ok, reason := evaluateCondition(sub, in)
			if ok {
				return true, "or: " + reason
			}
		}
		return false, "or: none matched"
	case KindNot:
		if c.Not == nil {
			return true, "not: no inner condition"
		}
		ok, reason := evaluateCondition(*c.Not, in)
		return !ok, "not: " + reason
	default:
		return false, fmt.Sprintf("unknown condition kind %q", c.Kind)
	}
}

func evalTrackExists(c Condition, in EvalInput) (bool, string) {
	for _, t := range in.Tracks {
		if c.TrackExistsType != "" && string(t.Kind) != strings.ToLower(c.TrackExistsType) {
			continue
		}
		if c.TrackExistsLanguage != "" && !language.Match(t.Language, c.TrackExistsLanguage) {
			continue
		}
		if c.TrackExistsCodec != "" && !strings.EqualFold(t.Codec, c.TrackExistsCodec) {
			continue
		}
		if c.TrackExistsTitleRegex != "" {
			re, err := regexp.Compile(c.TrackExistsTitleRegex)
			if err != nil || !re.MatchString(t.Title) {
				continue
			}
		}
		return true, fmt.Sprintf("track %d matches track_exists", t.TrackIndex)
	}
	return false, "no track matches track_exists"
}

func evalPluginMetadata(c Condition, in EvalInput) (bool, string) {
	fields, ok := in.PluginMetadata[c.PluginName]
	if !ok {
		return false, fmt.Sprintf("plugin %q has no metadata", c.PluginName)
	}
	actual, ok := fields[c.PluginField]
	if !ok {
		return false, fmt.Sprintf("plugin %q missing field %q", c.PluginName, c.PluginField)
	}
	matched := compareMetadata(actual, c.PluginValue, c.PluginOp)
	return matched, fmt.Sprintf("plugin %s.%s %s %v = %v", c.PluginName, c.PluginField, c.PluginOp, c.PluginValue, matched)
}

func compareMetadata(actual, want any, op Operator) bool {
	af, aok := toFloat(actual)
	wf, wok := toFloat(want)
	switch op {
	case OpEq:
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", want)
	case OpNe:
		return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", want)
	case OpContains:
		as, _ := actual.(string)
		ws, _ := want.(string)
		return strings.Contains(as, ws)
	case OpLt:
		return aok && wok && af < wf
	case OpLte:
		return aok && wok && af <= wf
	case OpGt:
		return aok && wok && af > wf
	case OpGte:
		return aok && wok && af >= wf
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

var resolutionOrder = []string{"480p", "720p", "1080p", "1440p", "2160p", "4k", "8k"}

func resolutionRank(label string) int {
	for i, r := range resolutionOrder {
		if strings.EqualFold(r, label) {
			return i
		}
	}
	return -1
}

// resolutionEquals reports whether a policy-authored resolution token
// matches the derived label, treating "4k" and "2160p" as the same UHD
// bucket — spec.md §4.6 lists both as distinct valid tokens, but they
// describe the same physical resolution class.
func resolutionEquals(want, label string) bool {
	if strings.EqualFold(want, label) {
		return true
	}
	isUHD := func(s string) bool { return strings.EqualFold(s, "2160p") || strings.EqualFold(s, "4k") }
	return isUHD(want) && isUHD(label)
}

// resolutionLabel derives a coarse resolution token from the first video
// track's height, used by resolution/resolution_under conditions.
func resolutionLabel(tracks []domain.Track) string {
	for _, t := range tracks {
		if t.Kind != domain.TrackKindVideo {
			continue
		}
		switch {
		case t.Height <= 0:
			return ""
		case t.Height <= 480:
			return "480p"
		case t.Height <= 720:
			return "720p"
		case t.Height <= 1080:
			return "1080p"
		case t.Height <= 1440:
			return "1440p"
		case t.Height <= 2160:
			return "2160p"
		default:
			return "8k"
		}
	}
	return ""
}
