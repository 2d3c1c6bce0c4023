// Package evaluator implements the pure policy evaluator (spec.md §4.8):
// given a file's tracks, the active policy configuration, and whatever
// transcription/classification signals are available, it produces a
// Plan. No I/O, no side effects — same inputs always yield the same
// Plan, so CreatedAt is left unset here; callers stamp it after the
// evaluator returns (stamping it inside Evaluate would make two calls
// with identical inputs disagree, violating the determinism invariant).
//
// Grounded on original_source's policy/evaluator.py
// (compute_desired_order, compute_default_flags, compute_language_updates)
// plus the track-disposition rule from spec.md §4.8 step 5, which has no
// equivalent function in the retrieved original_source files and is
// therefore authored directly from the spec text (see DESIGN.md).
package evaluator

import (
	"strings"

	"github.com/randomparity/vpo/internal/classify"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/language"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
)

// metadataCapableContainers lists container formats whose track metadata
// (flags, language, titles, tags) can be rewritten in place without a
// full remux (spec.md §4.9 dispatch table: "metadata-only edits on
// MKV-family containers").
var metadataCapableContainers = map[string]bool{
	"mkv":       true,
	"matroska":  true,
	"webm":      true,
}

var structuralActionKinds = map[plan.ActionKind]bool{
	plan.ActionReorder:         true,
	plan.ActionRemoveTrack:     true,
	plan.ActionAddTrack:        true,
	plan.ActionSynthesizeAudio: true,
	plan.ActionTranscodeVideo:  true,
	plan.ActionTranscodeAudio:  true,
	plan.ActionRemux:           true,
}

// Evaluate runs the full six-step evaluation described in spec.md §4.8
// and returns the resulting Plan. tracks must be the file's current
// track set (container-native order); containerFormat drives the
// requires_remux determination.
func Evaluate(tracks []domain.Track, cfg policy.Config, matcher classify.CommentaryMatcher, signals classify.Signals, containerFormat string) plan.Plan {
	if len(tracks) == 0 {
		return plan.Plan{}
	}

	desiredOrder := classify.ComputeDesiredOrder(tracks, cfg, matcher, signals)
	desiredDefaults := classify.ComputeDefaultFlags(tracks, cfg, matcher)
	languageUpdates := computeLanguageUpdates(tracks, signals.TranscriptionResults, cfg)
	dispositions := computeTrackDispositions(tracks, cfg, matcher, signals)

	var actions []plan.Action
	var warnings []string

	if reorderAction, changed := diffOrder(tracks, desiredOrder); changed {
		actions = append(actions, reorderAction)
	}

	byIndex := make(map[int]domain.Track, len(tracks))
	for _, t := range tracks {
		byIndex[t.TrackIndex] = t
	}

	for trackIndex, want := range desiredDefaults {
		if cur, ok := byIndex[trackIndex]; ok && cur.IsDefault == want {
			continue
		}
		actions = append(actions, plan.Action{
			Kind:       plan.ActionSetDefault,
			TrackIndex: trackIndex,
			BoolValue:  want,
		})
	}

	for trackIndex, code := range languageUpdates {
		actions = append(actions, plan.Action{
			Kind:       plan.ActionSetLanguage,
			TrackIndex: trackIndex,
			Code:       code,
		})
	}

	for _, d := range dispositions {
		if d.Disposition != plan.DispositionRemove {
			continue
		}
		actions = append(actions, plan.Action{
			Kind:       plan.ActionRemoveTrack,
			TrackIndex: d.TrackIndex,
		})
	}

	return plan.Plan{
		Actions:           actions,
		TrackDispositions: dispositions,
		RequiresRemux:     requiresRemux(actions, containerFormat),
		Warnings:          warnings,
	}
}

// diffOrder emits a reorder action iff the desired order differs from
// the track set's current order (ascending TrackIndex, the container's
// native order). Returns (action, false) if no reorder is needed.
func diffOrder(tracks []domain.Track, desiredOrder []int) (plan.Action, bool) {
	currentOrder := make([]int, len(tracks))
	for i, t := range tracks {
		currentOrder[i] = t.TrackIndex
	}
	// currentOrder here reflects input iteration order; compare to the
	// stable-sorted-by-TrackIndex identity order, since that's the
	// container-native order a freshly-probed file will present.
	natural := append([]int(nil), currentOrder...)
	sortInts(natural)

	same := len(natural) == len(desiredOrder)
	if same {
		for i := range natural {
			if natural[i] != desiredOrder[i] {
				same = false
				break
			}
		}
	}
	if same {
		return plan.Action{}, false
	}
	return plan.Action{Kind: plan.ActionReorder, NewIndexSequence: desiredOrder}, true
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// computeLanguageUpdates implements spec.md §4.8 step 4, grounded
// exactly on original_source's compute_language_updates: only audio
// tracks, only when transcription settings are enabled and
// update_language_from_transcription is set, only above the confidence
// threshold, and only when the detected language doesn't already match
// (cross-standard) the track's current language.
func computeLanguageUpdates(tracks []domain.Track, transcriptionResults map[int64]domain.TranscriptionResult, cfg policy.Config) map[int]string {
	result := make(map[int]string)
	if !cfg.HasTranscriptionSettings() || !cfg.Transcription.UpdateLanguageFromResult {
		return result
	}
	threshold := cfg.Transcription.ConfidenceThreshold

	for _, t := range tracks {
		if t.Kind != domain.TrackKindAudio {
			continue
		}
		tr, ok := transcriptionResults[t.ResolveID()]
		if !ok || tr.DetectedLanguage == "" {
			continue
		}
		if tr.ConfidenceScore < threshold {
			continue
		}
		currentLang := t.Language
		if currentLang == "" {
			currentLang = language.Undefined
		}
		if language.Match(currentLang, tr.DetectedLanguage) {
			continue
		}
		result[t.TrackIndex] = language.Normalize(tr.DetectedLanguage)
	}
	return result
}

// computeTrackDispositions implements spec.md §4.8 step 5: tracks
// outside the preferred language set and not exempt (commentary,
// forced, only-track-of-type) are marked REMOVE. The evaluator never
// removes the last remaining track of a mandatory kind (video, audio) —
// if every remaining candidate for a mandatory kind would be removed,
// one is spared.
func computeTrackDispositions(tracks []domain.Track, cfg policy.Config, matcher classify.CommentaryMatcher, signals classify.Signals) []plan.TrackDisposition {
	var result []plan.TrackDisposition

	var audioCount, subtitleCount int
	for _, t := range tracks {
		switch t.Kind {
		case domain.TrackKindAudio:
			audioCount++
		case domain.TrackKindSubtitle:
			subtitleCount++
		}
	}

	type candidate struct {
		track  domain.Track
		reason string
	}
	var audioCandidates []candidate

	for _, t := range tracks {
		switch t.Kind {
		case domain.TrackKindVideo:
			result = append(result, plan.TrackDisposition{TrackIndex: t.TrackIndex, Disposition: plan.DispositionKeep})

		case domain.TrackKindAudio:
			classification := classify.ClassifyTrack(t, cfg, matcher, signals)
			switch {
			case classification == policy.TrackTypeAudioCommentary:
				result = append(result, keep(t, "commentary track exempt from language filtering"))
			case t.IsForced:
				result = append(result, keep(t, "forced track exempt from language filtering"))
			case audioCount == 1:
				result = append(result, keep(t, "only audio track"))
			case matchesAny(t.Language, cfg.AudioLanguagePreference):
				result = append(result, keep(t, ""))
			default:
				audioCandidates = append(audioCandidates, candidate{t, "audio language not in preference list"})
			}

		case domain.TrackKindSubtitle:
			classification := classify.ClassifyTrack(t, cfg, matcher, signals)
			switch {
			case classification == policy.TrackTypeSubtitleCommentary:
				result = append(result, keep(t, "commentary track exempt from language filtering"))
			case classification == policy.TrackTypeSubtitleForced:
				result = append(result, keep(t, "forced track exempt from language filtering"))
			case subtitleCount == 1:
				result = append(result, keep(t, "only subtitle track"))
			case matchesAny(t.Language, cfg.SubtitleLanguagePreference):
				result = append(result, keep(t, ""))
			default:
				result = append(result, plan.TrackDisposition{
					TrackIndex:  t.TrackIndex,
					Disposition: plan.DispositionRemove,
					Reason:      "subtitle language not in preference list",
				})
			}

		default:
			result = append(result, keep(t, ""))
		}
	}

	survivingAudio := audioCount - len(audioCandidates)
	if survivingAudio == 0 && len(audioCandidates) > 0 {
		spared := audioCandidates[0]
		audioCandidates = audioCandidates[1:]
		result = append(result, keep(spared.track, "last remaining audio track, never removed"))
	}
	for _, c := range audioCandidates {
		result = append(result, plan.TrackDisposition{
			TrackIndex:  c.track.TrackIndex,
			Disposition: plan.DispositionRemove,
			Reason:      c.reason,
		})
	}

	return result
}

func keep(t domain.Track, reason string) plan.TrackDisposition {
	return plan.TrackDisposition{TrackIndex: t.TrackIndex, Disposition: plan.DispositionKeep, Reason: reason}
}

func matchesAny(lang string, preferences []string) bool {
	if lang == "" {
		lang = language.Undefined
	}
	for _, pref := range preferences {
		if language.Match(lang, pref) {
			return true
		}
	}
	return false
}

// requiresRemux determines whether the plan's actions force a full
// container rewrite (spec.md §4.9 dispatch table): any structural
// change always does; metadata-only changes do only on containers that
// can't carry metadata edits in place.
func requiresRemux(actions []plan.Action, containerFormat string) bool {
	if len(actions) == 0 {
		return false
	}
	for _, a := range actions {
		if structuralActionKinds[a.Kind] {
			return true
		}
	}
	return !metadataCapableContainers[strings.ToLower(containerFormat)]
}
