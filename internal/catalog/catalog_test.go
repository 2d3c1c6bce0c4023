package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/randomparity/vpo/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertFileThenUpdate(t *testing.T) {
	s := openTestStore(t)

	f := domain.File{
		Path: "/media/movie.mkv", Filename: "movie.mkv", Directory: "/media",
		Extension: "mkv", SizeBytes: 1000, ModifiedAt: time.Now(), ScannedAt: time.Now(),
		ScanStatus: domain.ScanStatusOK, PluginMetadata: map[string]string{},
	}
	id, err := s.UpsertFile(f)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero file id")
	}

	f.SizeBytes = 2000
	id2, err := s.UpsertFile(f)
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if id2 != id {
		t.Fatalf("expected same id on update, got %d vs %d", id2, id)
	}

	got, err := s.GetFileByPath(f.Path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.SizeBytes != 2000 {
		t.Fatalf("got = %+v, want updated size", got)
	}
}

func TestReplaceTracksIsTransactional(t *testing.T) {
	s := openTestStore(t)
	f := domain.File{Path: "/media/x.mkv", Filename: "x.mkv", Directory: "/media", Extension: "mkv",
		ModifiedAt: time.Now(), ScannedAt: time.Now(), ScanStatus: domain.ScanStatusOK}
	fileID, err := s.UpsertFile(f)
	if err != nil {
		t.Fatalf("upsert file: %v", err)
	}

	tracks := []domain.Track{
		{TrackIndex: 0, Kind: domain.TrackKindVideo, Codec: "h264"},
		{TrackIndex: 1, Kind: domain.TrackKindAudio, Codec: "aac", Language: "eng"},
	}
	if err := s.ReplaceTracks(fileID, tracks); err != nil {
		t.Fatalf("replace tracks: %v", err)
	}

	got, err := s.GetTracks(fileID)
	if err != nil {
		t.Fatalf("get tracks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(got))
	}

	// Replacing again with fewer tracks must fully clear the old set.
	if err := s.ReplaceTracks(fileID, tracks[:1]); err != nil {
		t.Fatalf("replace tracks again: %v", err)
	}
	got, err = s.GetTracks(fileID)
	if err != nil {
		t.Fatalf("get tracks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 track after replace, got %d", len(got))
	}
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	job := domain.Job{
		ID: "job-1", FilePath: "/media/x.mkv", JobType: domain.JobTypeProcess,
		Priority: 100, CreatedAt: time.Now(),
	}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, err := s.ClaimJob("worker-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != "job-1" {
		t.Fatalf("claimed = %+v", claimed)
	}
	if claimed.Status != domain.JobRunning {
		t.Fatalf("expected status running, got %v", claimed.Status)
	}

	// A second claim attempt must find nothing queued.
	second, err := s.ClaimJob("worker-2")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second != nil {
		t.Fatalf("expected no second job to claim, got %+v", second)
	}

	if err := s.ReportProgress("job-1", 50.0, `{"fps":24}`); err != nil {
		t.Fatalf("report progress: %v", err)
	}
	if err := s.CompleteJob("job-1", `{"changes":3}`, "/media/x.mkv"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	final, err := s.GetJob("job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if final.Status != domain.JobCompleted || final.CompletedAt == nil {
		t.Fatalf("final = %+v", final)
	}
}

func TestTranscriptionResultCache(t *testing.T) {
	s := openTestStore(t)
	r := domain.TranscriptionResult{
		TrackID: 1, FileHash: "abc123", DetectedLanguage: "eng",
		ConfidenceScore: 0.9, TrackType: domain.TTMain, CreatedAt: time.Now(),
	}
	if err := s.SaveTranscriptionResult(r); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetTranscriptionResult(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.FileHash != "abc123" {
		t.Fatalf("got = %+v", got)
	}
}
