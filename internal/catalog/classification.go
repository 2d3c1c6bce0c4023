package catalog

import (
	"database/sql"
	"time"

	"github.com/randomparity/vpo/internal/domain"
)

// SaveTrackClassification upserts the classification row for a track
// (spec.md §3.7).
func (s *Store) SaveTrackClassification(c domain.TrackClassification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now())
	_, err := s.db.Exec(`
		INSERT INTO track_classifications (track_id, original_dubbed_status, commentary_status,
			confidence_score, detection_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			original_dubbed_status=excluded.original_dubbed_status,
			commentary_status=excluded.commentary_status,
			confidence_score=excluded.confidence_score,
			detection_method=excluded.detection_method,
			updated_at=excluded.updated_at
	`, c.TrackID, c.OriginalDubbedStatus, boolToInt(c.CommentaryStatus), c.ConfidenceScore,
		string(c.DetectionMethod), now, now)
	return err
}

// GetTrackClassification returns the classification row for a track, or
// nil if none exists.
func (s *Store) GetTrackClassification(trackID int64) (*domain.TrackClassification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT track_id, original_dubbed_status, commentary_status, confidence_score,
			detection_method, created_at, updated_at
		FROM track_classifications WHERE track_id = ?
	`, trackID)

	var c domain.TrackClassification
	var commentary int
	var method, createdAt, updatedAt string
	err := row.Scan(&c.TrackID, &c.OriginalDubbedStatus, &commentary, &c.ConfidenceScore,
		&method, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CommentaryStatus = commentary != 0
	c.DetectionMethod = domain.DetectionMethod(method)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
