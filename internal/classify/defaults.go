package classify

import (
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/language"
	"github.com/randomparity/vpo/internal/policy"
)

// ComputeDefaultFlags computes the desired is_default value for each
// track index (spec.md §4.8 step 3), exactly following
// original_source's classification.py compute_default_flags four passes:
//  1. video — first video track default if set_first_video_default.
//  2. audio — preferred non-commentary audio track default if
//     set_preferred_audio_default; else-clear-all-subtitle-defaults edge
//     case folded into pass 3 (see below; this is the "SUPPLEMENTED
//     FEATURES" behavior spec.md §4.8 step 3 alone doesn't spell out).
//  3. subtitle — preferred non-commentary subtitle default if
//     set_preferred_subtitle_default; if that flag is OFF but
//     clear_other_defaults IS on, all subtitle defaults are cleared
//     regardless (the elif branch in the original).
//  4. subtitle-when-audio-differs — only fires if no subtitle default
//     was already set by pass 3, and only when no non-commentary audio
//     track matches the audio language preference.
func ComputeDefaultFlags(tracks []domain.Track, p policy.Config, matcher CommentaryMatcher) map[int]bool {
	flags := p.DefaultFlags
	result := make(map[int]bool)

	var video, audio, subtitle []domain.Track
	for _, t := range tracks {
		switch t.Kind {
		case domain.TrackKindVideo:
			video = append(video, t)
		case domain.TrackKindAudio:
			audio = append(audio, t)
		case domain.TrackKindSubtitle:
			subtitle = append(subtitle, t)
		}
	}

	// Pass 1: video.
	if flags.SetFirstVideoDefault && len(video) > 0 {
		result[video[0].TrackIndex] = true
		if flags.ClearOtherDefaults {
			for _, t := range video[1:] {
				result[t.TrackIndex] = false
			}
		}
	}

	// Pass 2: audio.
	if flags.SetPreferredAudioDefault && len(audio) > 0 {
		if preferred := findPreferredTrack(audio, p.AudioLanguagePreference, matcher); preferred != nil {
			result[preferred.TrackIndex] = true
		}
		if flags.ClearOtherDefaults {
			for _, t := range audio {
				if _, set := result[t.TrackIndex]; !set {
					result[t.TrackIndex] = false
				}
			}
		}
	}

	// Pass 3: subtitle.
	if flags.SetPreferredSubtitleDefault && len(subtitle) > 0 {
		if preferred := findPreferredTrack(subtitle, p.SubtitleLanguagePreference, matcher); preferred != nil {
			result[preferred.TrackIndex] = true
		}
		if flags.ClearOtherDefaults {
			for _, t := range subtitle {
				if _, set := result[t.TrackIndex]; !set {
					result[t.TrackIndex] = false
				}
			}
		}
	} else if flags.ClearOtherDefaults {
		for _, t := range subtitle {
			result[t.TrackIndex] = false
		}
	}

	// Pass 4: subtitle-when-audio-differs.
	if flags.SetSubtitleDefaultWhenAudioDiffers && len(subtitle) > 0 &&
		!audioMatchesLanguagePreference(audio, p.AudioLanguagePreference, matcher) {
		anyAlreadySet := false
		for _, t := range subtitle {
			if result[t.TrackIndex] {
				anyAlreadySet = true
				break
			}
		}
		if !anyAlreadySet {
			if preferred := findPreferredTrack(subtitle, p.SubtitleLanguagePreference, matcher); preferred != nil {
				result[preferred.TrackIndex] = true
			}
			if flags.ClearOtherDefaults {
				for _, t := range subtitle {
					if _, set := result[t.TrackIndex]; !set {
						result[t.TrackIndex] = false
					}
				}
			}
		}
	}

	return result
}

// findPreferredTrack returns the first non-commentary track matching the
// language preference list, falling back to the first non-commentary
// track, falling back to tracks[0] if every track is commentary.
func findPreferredTrack(tracks []domain.Track, preference []string, matcher CommentaryMatcher) *domain.Track {
	var nonCommentary []domain.Track
	for _, t := range tracks {
		if !matcher.IsCommentary(t.Title) {
			nonCommentary = append(nonCommentary, t)
		}
	}
	if len(nonCommentary) == 0 {
		if len(tracks) == 0 {
			return nil
		}
		return &tracks[0]
	}

	for _, pref := range preference {
		for i, t := range nonCommentary {
			lang := t.Language
			if lang == "" {
				lang = language.Undefined
			}
			if language.Match(lang, pref) {
				return &nonCommentary[i]
			}
		}
	}
	return &nonCommentary[0]
}

// audioMatchesLanguagePreference reports whether any non-commentary
// audio track matches the audio language preference.
func audioMatchesLanguagePreference(audio []domain.Track, preference []string, matcher CommentaryMatcher) bool {
	var nonCommentary []domain.Track
	for _, t := range audio {
		if !matcher.IsCommentary(t.Title) {
			nonCommentary = append(nonCommentary, t)
		}
	}
	if len(nonCommentary) == 0 {
		return false
	}
	for _, t := range nonCommentary {
		lang := t.Language
		if lang == "" {
			lang = language.Undefined
		}
		for _, pref := range preference {
			if language.Match(lang, pref) {
				return true
			}
		}
	}
	return false
}
