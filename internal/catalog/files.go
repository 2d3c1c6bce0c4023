package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/randomparity/vpo/internal/domain"
)

// UpsertFile inserts or updates a file row by path, returning its id.
func (s *Store) UpsertFile(f domain.File) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaJSON, err := json.Marshal(f.PluginMetadata)
	if err != nil {
		return 0, fmt.Errorf("marshal plugin metadata: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO files (path, filename, directory, extension, size_bytes, modified_at,
			content_hash, container_format, scanned_at, scan_status, scan_error, plugin_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename=excluded.filename, directory=excluded.directory, extension=excluded.extension,
			size_bytes=excluded.size_bytes, modified_at=excluded.modified_at,
			content_hash=excluded.content_hash, container_format=excluded.container_format,
			scanned_at=excluded.scanned_at, scan_status=excluded.scan_status,
			scan_error=excluded.scan_error, plugin_metadata=excluded.plugin_metadata
	`,
		f.Path, f.Filename, f.Directory, f.Extension, f.SizeBytes, formatTime(f.ModifiedAt),
		f.ContentHash, f.ContainerFormat, formatTime(f.ScannedAt), string(f.ScanStatus), f.ScanError, string(metaJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		// ON CONFLICT UPDATE doesn't report a useful LastInsertId on all
		// drivers; fall back to a lookup by the unique path.
		var existing int64
		if lookupErr := s.db.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&existing); lookupErr != nil {
			return 0, fmt.Errorf("lookup file id: %w", lookupErr)
		}
		return existing, nil
	}
	return id, nil
}

// GetFileByPath returns the file row for path, or nil if not found.
func (s *Store) GetFileByPath(path string) (*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, path, filename, directory, extension, size_bytes, modified_at,
			content_hash, container_format, scanned_at, scan_status, scan_error, plugin_metadata
		FROM files WHERE path = ?
	`, path)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// GetFileByID returns the file row for id, or nil if not found.
func (s *Store) GetFileByID(id int64) (*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, path, filename, directory, extension, size_bytes, modified_at,
			content_hash, container_format, scanned_at, scan_status, scan_error, plugin_metadata
		FROM files WHERE id = ?
	`, id)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// ListFiles returns every catalogued file, ordered by path.
func (s *Store) ListFiles() ([]domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, path, filename, directory, extension, size_bytes, modified_at,
			content_hash, container_format, scanned_at, scan_status, scan_error, plugin_metadata
		FROM files ORDER BY path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// DeleteFile removes a file row (and its tracks, via cascade).
func (s *Store) DeleteFile(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM files WHERE id = ?", id)
	return err
}

// MarkFileMissing sets a file's scan_status to missing without deleting it
// (spec.md §4.13 "either as missing status or deleted depending on prune mode").
func (s *Store) MarkFileMissing(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("UPDATE files SET scan_status = ? WHERE id = ?", string(domain.ScanStatusMissing), id)
	return err
}

// ReplaceTracks deletes all existing track rows for fileID and inserts
// the given tracks, in one transaction (spec.md §4.13 "replace track
// rows (delete + insert inside one transaction)").
func (s *Store) ReplaceTracks(fileID int64, tracks []domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM tracks WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete existing tracks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tracks (file_id, track_index, kind, codec, language, title, is_default, is_forced,
			channels, channel_layout, width, height, frame_rate, color_transfer, color_primaries,
			color_space, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tracks {
		if _, err := stmt.Exec(
			fileID, t.TrackIndex, string(t.Kind), t.Codec, t.Language, t.Title,
			boolToInt(t.IsDefault), boolToInt(t.IsForced), t.Channels, t.ChannelLayout,
			t.Width, t.Height, t.FrameRate, t.ColorTransfer, t.ColorPrimaries, t.ColorSpace,
			t.DurationSeconds,
		); err != nil {
			return fmt.Errorf("insert track %d: %w", t.TrackIndex, err)
		}
	}

	return tx.Commit()
}

// GetTracks returns every track row belonging to fileID, ordered by
// track_index.
func (s *Store) GetTracks(fileID int64) ([]domain.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, file_id, track_index, kind, codec, language, title, is_default, is_forced,
			channels, channel_layout, width, height, frame_rate, color_transfer, color_primaries,
			color_space, duration_seconds
		FROM tracks WHERE file_id = ? ORDER BY track_index
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Track
	for rows.Next() {
		var t domain.Track
		var kind string
		var isDefault, isForced int
		if err := rows.Scan(
			&t.ID, &t.FileID, &t.TrackIndex, &kind, &t.Codec, &t.Language, &t.Title,
			&isDefault, &isForced, &t.Channels, &t.ChannelLayout, &t.Width, &t.Height,
			&t.FrameRate, &t.ColorTransfer, &t.ColorPrimaries, &t.ColorSpace, &t.DurationSeconds,
		); err != nil {
			return nil, err
		}
		t.Kind = domain.TrackKind(kind)
		t.IsDefault = isDefault != 0
		t.IsForced = isForced != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*domain.File, error) {
	var f domain.File
	var modifiedAt, scannedAt string
	var scanStatus, metaJSON string
	if err := row.Scan(
		&f.ID, &f.Path, &f.Filename, &f.Directory, &f.Extension, &f.SizeBytes, &modifiedAt,
		&f.ContentHash, &f.ContainerFormat, &scannedAt, &scanStatus, &f.ScanError, &metaJSON,
	); err != nil {
		return nil, err
	}
	f.ModifiedAt = parseTime(modifiedAt)
	f.ScannedAt = parseTime(scannedAt)
	f.ScanStatus = domain.ScanStatus(scanStatus)
	_ = json.Unmarshal([]byte(metaJSON), &f.PluginMetadata)
	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
