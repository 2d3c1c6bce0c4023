// Package nameparse extracts title/year/season/episode/resolution/codec
// tokens from a media filename, for rendering move-destination templates.
package nameparse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Info holds the tokens extracted from a filename, usable as template
// fields for the move action's destination_template (spec.md §3.5, §4.9).
type Info struct {
	Title      string
	Year       int    // 0 if not found
	Season     int    // 0 if not a season/episode file
	Episode    int    // 0 if not a season/episode file
	Resolution string // e.g. "1080p", "" if not found
	Codec      string // e.g. "x265", "" if not found
}

var (
	yearRe       = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	seasonEpRe   = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,3})\b`)
	resolutionRe = regexp.MustCompile(`(?i)\b(480p|720p|1080p|1440p|2160p|4k|8k)\b`)
	codecRe      = regexp.MustCompile(`(?i)\b(x264|x265|h264|h265|hevc|av1|xvid)\b`)
	separatorsRe = regexp.MustCompile(`[._]+`)
)

// Parse extracts Info from a filename (basename, extension stripped).
// Unmatched fields are left at their zero value; Title is always
// populated (falling back to the full stem if no structured tokens are
// recognized).
func Parse(path string) Info {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	normalized := separatorsRe.ReplaceAllString(stem, " ")

	info := Info{}

	if m := seasonEpRe.FindStringSubmatch(normalized); m != nil {
		info.Season, _ = strconv.Atoi(m[1])
		info.Episode, _ = strconv.Atoi(m[2])
	}
	if m := yearRe.FindStringSubmatch(normalized); m != nil {
		info.Year, _ = strconv.Atoi(m[1])
	}
	if m := resolutionRe.FindStringSubmatch(normalized); m != nil {
		info.Resolution = strings.ToLower(m[1])
	}
	if m := codecRe.FindStringSubmatch(normalized); m != nil {
		info.Codec = strings.ToLower(m[1])
	}

	info.Title = extractTitle(normalized, info)
	return info
}

// extractTitle takes everything before the first recognized token
// (season/episode marker, year, resolution, codec) as the title,
// trimming trailing separators and whitespace.
func extractTitle(normalized string, info Info) string {
	cutPoints := []int{len(normalized)}
	for _, re := range []*regexp.Regexp{seasonEpRe, yearRe, resolutionRe, codecRe} {
		if loc := re.FindStringIndex(normalized); loc != nil {
			cutPoints = append(cutPoints, loc[0])
		}
	}
	cut := len(normalized)
	for _, c := range cutPoints {
		if c < cut {
			cut = c
		}
	}
	title := strings.TrimSpace(normalized[:cut])
	title = strings.Trim(title, "-_. ")
	if title == "" {
		return strings.TrimSpace(normalized)
	}
	return title
}
