// Package probe wraps ffprobe to produce a sanitized, track-level
// introspection of a media container (spec.md §4.2), generalizing the
// teacher's single-video/single-audio-track ffmpeg.Prober into a
// full per-track model suitable for the policy evaluator.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/randomparity/vpo/internal/domain"
)

// TrackInfo is one stream's sanitized metadata (spec.md §3.2, §4.2).
type TrackInfo struct {
	Index           int
	Kind            domain.TrackKind
	Codec           string
	Language        string
	Title           string
	IsDefault       bool
	IsForced        bool
	Channels        int
	ChannelLayout   string
	Width           int
	Height          int
	FrameRate       float64
	ColorTransfer   string
	ColorPrimaries  string
	ColorSpace      string
	DurationSeconds float64
}

// IntrospectionResult is the probe adapter's full contract output
// (spec.md §4.2).
type IntrospectionResult struct {
	ContainerFormat   string
	ContainerDuration float64
	ContainerTags     map[string]string
	Warnings          []string
	Tracks            []TrackInfo
}

// ProbeError wraps any failure to run or parse ffprobe (spec.md §4.2:
// "tool unavailable, times out, returns non-zero, or emits unparseable
// output").
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ffprobeOutput mirrors ffprobe's -show_format -show_streams JSON.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

type ffprobeDisposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

type ffprobeStream struct {
	Index          int                 `json:"index"`
	CodecType      string              `json:"codec_type"`
	CodecName      string              `json:"codec_name"`
	Width          int                 `json:"width"`
	Height         int                 `json:"height"`
	RFrameRate     string              `json:"r_frame_rate"`
	AvgFrameRate   string              `json:"avg_frame_rate"`
	Channels       int                 `json:"channels"`
	ChannelLayout  string              `json:"channel_layout"`
	Duration       string              `json:"duration"`
	ColorTransfer  string              `json:"color_transfer"`
	ColorPrimaries string              `json:"color_primaries"`
	ColorSpace     string              `json:"color_space"`
	Disposition    ffprobeDisposition  `json:"disposition"`
	Tags           map[string]string   `json:"tags"`
}

// Prober wraps ffprobe invocation.
type Prober struct {
	ffprobePath string
}

// NewProber creates a Prober bound to a specific ffprobe binary path.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

// Probe runs ffprobe against path and returns a sanitized introspection
// result. Warnings accumulate rather than aborting — only tool failure
// or unparseable JSON produce a ProbeError.
func (p *Prober) Probe(ctx context.Context, path string) (IntrospectionResult, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return IntrospectionResult{}, &ProbeError{Path: path, Err: fmt.Errorf("ffprobe: %s", string(exitErr.Stderr))}
		}
		return IntrospectionResult{}, &ProbeError{Path: path, Err: err}
	}

	var raw ffprobeOutput
	if err := json.Unmarshal(output, &raw); err != nil {
		return IntrospectionResult{}, &ProbeError{Path: path, Err: fmt.Errorf("parse ffprobe output: %w", err)}
	}

	return sanitize(raw), nil
}

// sanitize converts raw ffprobe output into the sanitized contract
// shape (spec.md §4.2): UTF-8 filtering, tag key/value length caps,
// numeric validation, and frame-rate/duration fallbacks.
func sanitize(raw ffprobeOutput) IntrospectionResult {
	result := IntrospectionResult{
		ContainerFormat: toValidUTF8(raw.Format.FormatName),
		ContainerTags:   make(map[string]string),
	}

	if raw.Format.Duration != "" {
		if d, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil && d >= 0 {
			result.ContainerDuration = d
		} else {
			result.Warnings = append(result.Warnings, "container duration invalid, defaulted to 0")
		}
	}

	sanitizeTagsInto(result.ContainerTags, raw.Format.Tags, &result.Warnings)

	for _, s := range raw.Streams {
		track, warn := sanitizeStream(s, result.ContainerDuration)
		result.Warnings = append(result.Warnings, warn...)
		result.Tracks = append(result.Tracks, track)
	}

	return result
}

func sanitizeStream(s ffprobeStream, containerDuration float64) (TrackInfo, []string) {
	var warnings []string

	t := TrackInfo{
		Index: s.Index,
		Kind:  kindFromCodecType(s.CodecType),
		Codec: toValidUTF8(s.CodecName),
	}

	tags := make(map[string]string)
	sanitizeTagsInto(tags, s.Tags, &warnings)
	t.Language = tags["language"]
	t.Title = tags["title"]

	t.IsDefault = s.Disposition.Default != 0
	t.IsForced = s.Disposition.Forced != 0

	if s.Width >= 0 {
		t.Width = s.Width
	} else {
		warnings = append(warnings, fmt.Sprintf("stream %d: negative width, defaulted to 0", s.Index))
	}
	if s.Height >= 0 {
		t.Height = s.Height
	} else {
		warnings = append(warnings, fmt.Sprintf("stream %d: negative height, defaulted to 0", s.Index))
	}

	if s.Channels >= 0 {
		t.Channels = s.Channels
	} else {
		warnings = append(warnings, fmt.Sprintf("stream %d: negative channel count, defaulted to 0", s.Index))
	}
	t.ChannelLayout = channelLayoutLabel(s.ChannelLayout, t.Channels)

	t.FrameRate = parseFrameRate(s.RFrameRate)
	if t.FrameRate == 0 {
		t.FrameRate = parseFrameRate(s.AvgFrameRate)
	}

	if s.Duration != "" {
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d >= 0 {
			t.DurationSeconds = d
		} else {
			warnings = append(warnings, fmt.Sprintf("stream %d: duration invalid, defaulted to 0", s.Index))
		}
	}
	if t.DurationSeconds == 0 {
		// Fallback: container duration substitutes for a stream with none
		// (spec.md §4.2 "If a stream has no duration, the container
		// duration is substituted").
		t.DurationSeconds = containerDuration
	}

	t.ColorTransfer = toValidUTF8(s.ColorTransfer)
	t.ColorPrimaries = toValidUTF8(s.ColorPrimaries)
	t.ColorSpace = toValidUTF8(s.ColorSpace)

	return t, warnings
}

func kindFromCodecType(codecType string) domain.TrackKind {
	switch codecType {
	case "video":
		return domain.TrackKindVideo
	case "audio":
		return domain.TrackKindAudio
	case "subtitle":
		return domain.TrackKindSubtitle
	case "attachment":
		return domain.TrackKindAttachment
	default:
		return domain.TrackKindOther
	}
}

// parseFrameRate parses an "N/D" rational frame-rate string, rejecting
// the "0/0" ffprobe emits for streams with no known rate.
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	num, errN := strconv.ParseFloat(parts[0], 64)
	den, errD := strconv.ParseFloat(parts[1], 64)
	if errN != nil || errD != nil || den == 0 {
		return 0
	}
	return num / den
}
