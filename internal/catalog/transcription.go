package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/randomparity/vpo/internal/domain"
)

// SaveTranscriptionResult upserts the transcription cache row for a
// track (spec.md §3.6). Cache key is track_id; callers must compare
// FileHash themselves to decide whether a cached row is stale (spec.md
// §4.5: "Cache is reusable iff FileHash matches the file's current
// content hash").
func (s *Store) SaveTranscriptionResult(r domain.TranscriptionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	segJSON, err := json.Marshal(r.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO transcription_results (track_id, file_hash, detected_language, confidence_score,
			track_type, plugin_name, transcript_sample, segments_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			file_hash=excluded.file_hash, detected_language=excluded.detected_language,
			confidence_score=excluded.confidence_score, track_type=excluded.track_type,
			plugin_name=excluded.plugin_name, transcript_sample=excluded.transcript_sample,
			segments_json=excluded.segments_json, created_at=excluded.created_at
	`, r.TrackID, r.FileHash, r.DetectedLanguage, r.ConfidenceScore, string(r.TrackType),
		r.PluginName, r.TranscriptSample, string(segJSON), formatTime(r.CreatedAt))
	return err
}

// GetTranscriptionResult returns the cached transcription result for a
// track, or nil if none exists.
func (s *Store) GetTranscriptionResult(trackID int64) (*domain.TranscriptionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT track_id, file_hash, detected_language, confidence_score, track_type,
			plugin_name, transcript_sample, segments_json, created_at
		FROM transcription_results WHERE track_id = ?
	`, trackID)

	var r domain.TranscriptionResult
	var trackType, createdAt, segJSON string
	err := row.Scan(&r.TrackID, &r.FileHash, &r.DetectedLanguage, &r.ConfidenceScore, &trackType,
		&r.PluginName, &r.TranscriptSample, &segJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.TrackType = domain.TranscriptionTrackType(trackType)
	r.CreatedAt = parseTime(createdAt)
	_ = json.Unmarshal([]byte(segJSON), &r.Segments)
	return &r, nil
}

// TranscriptionResultsForFile returns every cached transcription result
// for the tracks belonging to fileID, keyed by track id — the shape the
// evaluator's signals expect (spec.md §4.8).
func (s *Store) TranscriptionResultsForFile(fileID int64) (map[int64]domain.TranscriptionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT tr.track_id, tr.file_hash, tr.detected_language, tr.confidence_score, tr.track_type,
			tr.plugin_name, tr.transcript_sample, tr.segments_json, tr.created_at
		FROM transcription_results tr
		JOIN tracks t ON t.id = tr.track_id
		WHERE t.file_id = ?
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]domain.TranscriptionResult)
	for rows.Next() {
		var r domain.TranscriptionResult
		var trackType, createdAt, segJSON string
		if err := rows.Scan(&r.TrackID, &r.FileHash, &r.DetectedLanguage, &r.ConfidenceScore, &trackType,
			&r.PluginName, &r.TranscriptSample, &segJSON, &createdAt); err != nil {
			return nil, err
		}
		r.TrackType = domain.TranscriptionTrackType(trackType)
		r.CreatedAt = parseTime(createdAt)
		_ = json.Unmarshal([]byte(segJSON), &r.Segments)
		out[r.TrackID] = r
	}
	return out, rows.Err()
}
