package classify

import (
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/language"
	"github.com/randomparity/vpo/internal/policy"
)

// Signals bundles the optional external inputs classification can use,
// keyed by the track's ResolveID() (spec.md §9 Open Question #1: prefer
// catalog id, fall back to track_index).
type Signals struct {
	TranscriptionResults map[int64]domain.TranscriptionResult
}

// ClassifyTrack classifies one track according to policy rules (spec.md
// §4.5). Classification priority for audio tracks:
//  1. SFX (metadata) — most specific
//  2. Music (metadata)
//  3. Commentary (metadata)
//  4. Transcription-based classification (sfx, music, non_speech, commentary)
//  5. Language-based: main if in preference, else alternate
//
// Grounded exactly on original_source's classification.py classify_track.
func ClassifyTrack(t domain.Track, p policy.Config, matcher CommentaryMatcher, signals Signals) policy.TrackType {
	switch t.Kind {
	case domain.TrackKindVideo:
		return policy.TrackTypeVideo

	case domain.TrackKindAudio:
		if IsSFXByMetadata(t.Title) {
			return policy.TrackTypeAudioSFX
		}
		if IsMusicByMetadata(t.Title) {
			return policy.TrackTypeAudioMusic
		}
		if matcher.IsCommentary(t.Title) {
			return policy.TrackTypeAudioCommentary
		}

		if signals.TranscriptionResults != nil {
			if tr, ok := signals.TranscriptionResults[t.ResolveID()]; ok {
				switch tr.TrackType {
				case domain.TTSFX:
					return policy.TrackTypeAudioSFX
				case domain.TTMusic:
					return policy.TrackTypeAudioMusic
				case domain.TTNonSpeech:
					return policy.TrackTypeAudioNonSpeech
				case domain.TTCommentary:
					if p.HasTranscriptionSettings() && p.Transcription.DetectCommentary {
						return policy.TrackTypeAudioCommentary
					}
				}
			}
		}

		lang := t.Language
		if lang == "" {
			lang = language.Undefined
		}
		for _, pref := range p.AudioLanguagePreference {
			if language.Match(lang, pref) {
				return policy.TrackTypeAudioMain
			}
		}
		return policy.TrackTypeAudioAlternate

	case domain.TrackKindSubtitle:
		if matcher.IsCommentary(t.Title) {
			return policy.TrackTypeSubtitleCommentary
		}
		if t.IsForced {
			return policy.TrackTypeSubtitleForced
		}
		return policy.TrackTypeSubtitleMain

	default:
		return policy.TrackTypeAttachment
	}
}

// findLanguagePreferenceIndex returns the index of lang in preferences
// using cross-standard language.Match, or len(preferences) if absent.
func findLanguagePreferenceIndex(lang string, preferences []string) int {
	for i, pref := range preferences {
		if language.Match(lang, pref) {
			return i
		}
	}
	return len(preferences)
}
