package nameparse

import "testing"

func TestParseMovie(t *testing.T) {
	info := Parse("The.Matrix.1999.1080p.x265.mkv")
	if info.Title != "The Matrix" {
		t.Errorf("Title = %q, want %q", info.Title, "The Matrix")
	}
	if info.Year != 1999 {
		t.Errorf("Year = %d, want 1999", info.Year)
	}
	if info.Resolution != "1080p" {
		t.Errorf("Resolution = %q, want 1080p", info.Resolution)
	}
	if info.Codec != "x265" {
		t.Errorf("Codec = %q, want x265", info.Codec)
	}
}

func TestParseEpisode(t *testing.T) {
	info := Parse("Show.Name.S02E05.720p.mkv")
	if info.Season != 2 || info.Episode != 5 {
		t.Errorf("Season/Episode = %d/%d, want 2/5", info.Season, info.Episode)
	}
	if info.Title != "Show Name" {
		t.Errorf("Title = %q, want %q", info.Title, "Show Name")
	}
}

func TestParseNoTokens(t *testing.T) {
	info := Parse("random_clip.mkv")
	if info.Title == "" {
		t.Error("expected non-empty fallback title")
	}
	if info.Year != 0 || info.Season != 0 {
		t.Errorf("expected zero-value year/season, got %+v", info)
	}
}
