package probe

import (
	"strings"
	"testing"

	"github.com/randomparity/vpo/internal/domain"
)

func TestSanitizeBasicTracks(t *testing.T) {
	raw := ffprobeOutput{
		Format: ffprobeFormat{
			FormatName: "matroska,webm",
			Duration:   "120.5",
			Tags:       map[string]string{"Title": "Sample Movie"},
		},
		Streams: []ffprobeStream{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, RFrameRate: "24000/1001"},
			{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2, Tags: map[string]string{"language": "eng"}},
		},
	}

	result := sanitize(raw)

	if result.ContainerFormat != "matroska,webm" {
		t.Errorf("container format = %q", result.ContainerFormat)
	}
	if result.ContainerDuration != 120.5 {
		t.Errorf("container duration = %v", result.ContainerDuration)
	}
	if result.ContainerTags["title"] != "Sample Movie" {
		t.Errorf("expected case-folded tag key, got %+v", result.ContainerTags)
	}
	if len(result.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(result.Tracks))
	}
	if result.Tracks[0].Kind != domain.TrackKindVideo || result.Tracks[0].FrameRate < 23.9 || result.Tracks[0].FrameRate > 24.0 {
		t.Errorf("video track = %+v", result.Tracks[0])
	}
	if result.Tracks[1].Language != "eng" || result.Tracks[1].ChannelLayout != "stereo" {
		t.Errorf("audio track = %+v", result.Tracks[1])
	}
}

func TestSanitizeRejectsZeroOverZeroFrameRate(t *testing.T) {
	raw := ffprobeOutput{
		Streams: []ffprobeStream{
			{Index: 0, CodecType: "video", CodecName: "mjpeg", RFrameRate: "0/0", AvgFrameRate: "0/0"},
		},
	}
	result := sanitize(raw)
	if result.Tracks[0].FrameRate != 0 {
		t.Errorf("expected 0/0 to be rejected, got %v", result.Tracks[0].FrameRate)
	}
}

func TestSanitizeSubstitutesContainerDurationWhenStreamHasNone(t *testing.T) {
	raw := ffprobeOutput{
		Format: ffprobeFormat{Duration: "90.0"},
		Streams: []ffprobeStream{
			{Index: 0, CodecType: "audio", CodecName: "flac"},
		},
	}
	result := sanitize(raw)
	if result.Tracks[0].DurationSeconds != 90.0 {
		t.Errorf("expected container duration fallback, got %v", result.Tracks[0].DurationSeconds)
	}
}

func TestSanitizeDropsOversizedTagsWithWarning(t *testing.T) {
	bigValue := strings.Repeat("x", maxTagValueBytes+1)
	raw := ffprobeOutput{
		Format: ffprobeFormat{Tags: map[string]string{"comment": bigValue, "title": "ok"}},
	}
	result := sanitize(raw)
	if _, ok := result.ContainerTags["comment"]; ok {
		t.Error("expected oversized tag value to be dropped")
	}
	if result.ContainerTags["title"] != "ok" {
		t.Error("expected normal-sized tag to survive")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for the dropped tag")
	}
}

func TestChannelLayoutLabelFallsBackToTable(t *testing.T) {
	cases := map[int]string{1: "mono", 2: "stereo", 6: "5.1", 8: "7.1", 3: "3ch"}
	for channels, want := range cases {
		if got := channelLayoutLabel("", channels); got != want {
			t.Errorf("channelLayoutLabel(%d) = %q, want %q", channels, got, want)
		}
	}
}

func TestSanitizeDispositionFlags(t *testing.T) {
	raw := ffprobeOutput{
		Streams: []ffprobeStream{
			{Index: 0, CodecType: "subtitle", CodecName: "subrip", Disposition: ffprobeDisposition{Forced: 1}},
		},
	}
	result := sanitize(raw)
	if !result.Tracks[0].IsForced || result.Tracks[0].IsDefault {
		t.Errorf("disposition flags = %+v", result.Tracks[0])
	}
}
