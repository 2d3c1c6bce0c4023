package classify

import (
	"testing"

	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/policy"
)

func samplePolicy() policy.Config {
	return policy.Config{
		AudioLanguagePreference:    []string{"eng", "fre"},
		SubtitleLanguagePreference: []string{"eng"},
		TrackOrder: []policy.TrackType{
			policy.TrackTypeVideo,
			policy.TrackTypeAudioMain,
			policy.TrackTypeAudioAlternate,
			policy.TrackTypeAudioCommentary,
			policy.TrackTypeSubtitleMain,
		},
		CommentaryPatterns: []string{"commentary", "director"},
		DefaultFlags: policy.DefaultFlagsConfig{
			SetPreferredAudioDefault: true,
			ClearOtherDefaults:       true,
		},
	}
}

// TestReorderWithLanguagePreference mirrors spec.md §8 scenario 1.
func TestReorderWithLanguagePreference(t *testing.T) {
	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo, Codec: "h264"},
		{TrackIndex: 1, Kind: domain.TrackKindAudio, Codec: "ac3", Language: "fre"},
		{TrackIndex: 2, Kind: domain.TrackKindAudio, Codec: "aac", Language: "eng"},
		{TrackIndex: 3, Kind: domain.TrackKindSubtitle, Codec: "srt", Language: "eng"},
	}
	p := samplePolicy()
	matcher := NewCommentaryMatcher(p.CommentaryPatterns)

	order := ComputeDesiredOrder(tracks, p, matcher, Signals{})
	want := []int{0, 2, 1, 3}
	if !equalInts(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}

	flags := ComputeDefaultFlags(tracks, p, matcher)
	if !flags[2] {
		t.Error("expected audio#2 (eng) to be default")
	}
	if flags[1] {
		t.Error("expected audio#1 (fre) to not be default")
	}
}

// TestCommentaryDemotion mirrors spec.md §8 scenario 2.
func TestCommentaryDemotion(t *testing.T) {
	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo},
		{TrackIndex: 1, Kind: domain.TrackKindAudio, Language: "eng", Title: "Director's Commentary"},
		{TrackIndex: 2, Kind: domain.TrackKindAudio, Language: "eng", Title: "Main"},
	}
	p := samplePolicy()
	matcher := NewCommentaryMatcher(p.CommentaryPatterns)

	if got := ClassifyTrack(tracks[1], p, matcher, Signals{}); got != policy.TrackTypeAudioCommentary {
		t.Errorf("commentary track classified as %v", got)
	}
	if got := ClassifyTrack(tracks[2], p, matcher, Signals{}); got != policy.TrackTypeAudioMain {
		t.Errorf("main track classified as %v", got)
	}

	flags := ComputeDefaultFlags(tracks, p, matcher)
	if !flags[2] {
		t.Error("expected main audio track to be default")
	}
	if flags[1] {
		t.Error("expected commentary track to not be default")
	}

	order := ComputeDesiredOrder(tracks, p, matcher, Signals{})
	want := []int{0, 2, 1}
	if !equalInts(order, want) {
		t.Fatalf("order = %v, want %v (commentary after main)", order, want)
	}
}

func TestClearOtherDefaultsOnSubtitleEdgeCase(t *testing.T) {
	p := samplePolicy()
	p.DefaultFlags.SetPreferredSubtitleDefault = false
	p.DefaultFlags.ClearOtherDefaults = true
	matcher := NewCommentaryMatcher(p.CommentaryPatterns)

	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindSubtitle, Language: "eng", IsDefault: true},
	}
	flags := ComputeDefaultFlags(tracks, p, matcher)
	if flags[0] {
		t.Error("expected subtitle default cleared even though set_preferred_subtitle_default is off")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
