package classify

import (
	"sort"

	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/language"
	"github.com/randomparity/vpo/internal/policy"
)

// ComputeDesiredOrder returns track indices in desired order (spec.md
// §4.8 step 2). Sort key: (position-in-policy.track_order,
// language-preference-index, original-index). Only audio_main sorts
// secondarily by audio preference; subtitle_main by subtitle preference.
func ComputeDesiredOrder(tracks []domain.Track, p policy.Config, matcher CommentaryMatcher, signals Signals) []int {
	if len(tracks) == 0 {
		return nil
	}

	orderIndex := make(map[policy.TrackType]int, len(p.TrackOrder))
	for i, tt := range p.TrackOrder {
		orderIndex[tt] = i
	}
	fallbackPrimary := len(p.TrackOrder)

	type keyed struct {
		track     domain.Track
		primary   int
		secondary int
	}

	keys := make([]keyed, len(tracks))
	for i, t := range tracks {
		classification := ClassifyTrack(t, p, matcher, signals)
		primary, ok := orderIndex[classification]
		if !ok {
			primary = fallbackPrimary
		}

		secondary := 999
		lang := t.Language
		if lang == "" {
			lang = language.Undefined
		}
		switch classification {
		case policy.TrackTypeAudioMain:
			secondary = findLanguagePreferenceIndex(lang, p.AudioLanguagePreference)
		case policy.TrackTypeSubtitleMain:
			secondary = findLanguagePreferenceIndex(lang, p.SubtitleLanguagePreference)
		}

		keys[i] = keyed{track: t, primary: primary, secondary: secondary}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].primary != keys[j].primary {
			return keys[i].primary < keys[j].primary
		}
		if keys[i].secondary != keys[j].secondary {
			return keys[i].secondary < keys[j].secondary
		}
		return keys[i].track.TrackIndex < keys[j].track.TrackIndex
	})

	result := make([]int, len(keys))
	for i, k := range keys {
		result[i] = k.track.TrackIndex
	}
	return result
}
