package evaluator

import (
	"testing"

	"github.com/randomparity/vpo/internal/classify"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
)

func scenarioOnePolicy() policy.Config {
	return policy.Config{
		AudioLanguagePreference:    []string{"eng", "fre"},
		SubtitleLanguagePreference: []string{"eng"},
		TrackOrder: []policy.TrackType{
			policy.TrackTypeVideo,
			policy.TrackTypeAudioMain,
			policy.TrackTypeAudioAlternate,
			policy.TrackTypeSubtitleMain,
		},
		DefaultFlags: policy.DefaultFlagsConfig{
			SetPreferredAudioDefault: true,
			ClearOtherDefaults:       true,
		},
	}
}

// TestEvaluateReorderWithLanguagePreference mirrors spec.md §8 scenario 1
// end to end: reorder to [0,2,1,3], set_default(2,true), set_default(1,false).
func TestEvaluateReorderWithLanguagePreference(t *testing.T) {
	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo, Codec: "h264"},
		{TrackIndex: 1, Kind: domain.TrackKindAudio, Codec: "ac3", Language: "fre", IsDefault: true},
		{TrackIndex: 2, Kind: domain.TrackKindAudio, Codec: "aac", Language: "eng"},
		{TrackIndex: 3, Kind: domain.TrackKindSubtitle, Codec: "srt", Language: "eng"},
	}
	p := scenarioOnePolicy()
	matcher := classify.NewCommentaryMatcher(nil)

	result := Evaluate(tracks, p, matcher, classify.Signals{}, "mkv")

	var gotReorder *plan.Action
	defaults := map[int]bool{}
	for i, a := range result.Actions {
		switch a.Kind {
		case plan.ActionReorder:
			gotReorder = &result.Actions[i]
		case plan.ActionSetDefault:
			defaults[a.TrackIndex] = a.BoolValue
		}
	}

	if gotReorder == nil {
		t.Fatal("expected a reorder action")
	}
	want := []int{0, 2, 1, 3}
	if len(gotReorder.NewIndexSequence) != len(want) {
		t.Fatalf("reorder = %v, want %v", gotReorder.NewIndexSequence, want)
	}
	for i := range want {
		if gotReorder.NewIndexSequence[i] != want[i] {
			t.Fatalf("reorder = %v, want %v", gotReorder.NewIndexSequence, want)
		}
	}

	if v, ok := defaults[2]; !ok || !v {
		t.Errorf("expected set_default(2, true), got %v (present=%v)", v, ok)
	}
	if v, ok := defaults[1]; !ok || v {
		t.Errorf("expected set_default(1, false), got %v (present=%v)", v, ok)
	}

	if !result.RequiresRemux {
		t.Error("reorder is structural, expected requires_remux=true")
	}
}

func TestEvaluateEmptyTracksYieldsEmptyPlan(t *testing.T) {
	p := scenarioOnePolicy()
	matcher := classify.NewCommentaryMatcher(nil)
	result := Evaluate(nil, p, matcher, classify.Signals{}, "mkv")
	if !result.IsEmpty() {
		t.Fatalf("expected empty plan, got %+v", result)
	}
}

func TestEvaluateNeverRemovesLastAudioTrack(t *testing.T) {
	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo},
		{TrackIndex: 1, Kind: domain.TrackKindAudio, Language: "jpn"},
	}
	p := scenarioOnePolicy() // prefers eng/fre; this track is jpn, the only audio track
	matcher := classify.NewCommentaryMatcher(nil)

	result := Evaluate(tracks, p, matcher, classify.Signals{}, "mkv")

	for _, d := range result.TrackDispositions {
		if d.TrackIndex == 1 && d.Disposition == plan.DispositionRemove {
			t.Fatalf("last remaining audio track must never be disposed REMOVE: %+v", d)
		}
	}
	for _, a := range result.Actions {
		if a.Kind == plan.ActionRemoveTrack && a.TrackIndex == 1 {
			t.Fatal("expected no remove_track action against the sole audio track")
		}
	}
}

func TestEvaluateLanguageUpdateFromTranscription(t *testing.T) {
	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo},
		{TrackIndex: 1, ID: 101, Kind: domain.TrackKindAudio, Language: "und"},
	}
	p := scenarioOnePolicy()
	p.Transcription = policy.TranscriptionConfig{
		Enabled:                  true,
		ConfidenceThreshold:      0.5,
		UpdateLanguageFromResult: true,
	}
	matcher := classify.NewCommentaryMatcher(nil)
	signals := classify.Signals{
		TranscriptionResults: map[int64]domain.TranscriptionResult{
			101: {DetectedLanguage: "eng", ConfidenceScore: 0.9},
		},
	}

	result := Evaluate(tracks, p, matcher, signals, "mkv")

	found := false
	for _, a := range result.Actions {
		if a.Kind == plan.ActionSetLanguage && a.TrackIndex == 1 {
			found = true
			if a.Code != "eng" {
				t.Errorf("set_language code = %q, want eng", a.Code)
			}
		}
	}
	if !found {
		t.Fatal("expected a set_language action for the undefined-language track")
	}
}

func TestEvaluateNonMKVMetadataOnlyRequiresRemux(t *testing.T) {
	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo},
		{TrackIndex: 1, Kind: domain.TrackKindAudio, Language: "eng", IsDefault: false},
	}
	p := scenarioOnePolicy()
	matcher := classify.NewCommentaryMatcher(nil)

	result := Evaluate(tracks, p, matcher, classify.Signals{}, "mp4")
	if len(result.Actions) == 0 {
		t.Fatal("expected at least a set_default action")
	}
	if !result.RequiresRemux {
		t.Error("mp4 cannot carry metadata-only edits in place, expected requires_remux=true")
	}
}
