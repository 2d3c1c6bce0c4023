// Package classify implements track classification, ordering, and
// default-flag computation (spec.md §4.5, §4.8 steps 1-3), grounded on
// original_source's classification.py.
package classify

import "strings"

// CommentaryMatcher checks a track title against the policy's
// commentary_patterns (spec.md §4.6 config.commentary_patterns).
type CommentaryMatcher struct {
	patterns []string
}

// NewCommentaryMatcher builds a matcher from policy-configured patterns.
func NewCommentaryMatcher(patterns []string) CommentaryMatcher {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return CommentaryMatcher{patterns: lowered}
}

// IsCommentary reports whether title matches any commentary pattern,
// case-insensitively, as a substring.
func (m CommentaryMatcher) IsCommentary(title string) bool {
	return containsAny(title, m.patterns)
}

var sfxKeywords = []string{"sfx", "sound effects", "effects only", "m&e", "music and effects"}
var musicKeywords = []string{"music only", "score only", "instrumental", "music track"}

// IsSFXByMetadata reports whether a track title indicates an
// effects-only audio track (spec.md §4.5 stage 1, most specific).
func IsSFXByMetadata(title string) bool {
	return containsAny(title, sfxKeywords)
}

// IsMusicByMetadata reports whether a track title indicates a
// music-only audio track (spec.md §4.5 stage 1).
func IsMusicByMetadata(title string) bool {
	return containsAny(title, musicKeywords)
}

func containsAny(title string, patterns []string) bool {
	lowered := strings.ToLower(title)
	for _, p := range patterns {
		if p != "" && strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
