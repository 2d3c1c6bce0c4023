package catalog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/randomparity/vpo/internal/domain"
)

// FileFilter narrows ListFilesFiltered's result set (spec.md §6.3
// "GET /api/library?status&search&resolution&audio_lang&subtitles").
type FileFilter struct {
	Status     string // matches files.scan_status exactly, "" = any
	Search     string // substring match against path, case-insensitive
	Resolution string // matches a video track's bucketed resolution, e.g. "1080p"
	AudioLang  string // matches an audio track's language
	Subtitles  string // "any", "none", or a language code
	Limit      int
	Offset     int
}

// ListFilesFiltered returns the page of files matching filter plus the
// total match count (for pagination), ordered by path.
func (s *Store) ListFilesFiltered(filter FileFilter) ([]domain.File, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any

	if filter.Status != "" {
		where = append(where, "f.scan_status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where = append(where, "f.path LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}
	if filter.Resolution != "" {
		where = append(where, "EXISTS (SELECT 1 FROM tracks t WHERE t.file_id = f.id AND t.kind = 'video' AND ? = "+resolutionBucketExpr("t")+")")
		args = append(args, filter.Resolution)
	}
	if filter.AudioLang != "" {
		where = append(where, "EXISTS (SELECT 1 FROM tracks t WHERE t.file_id = f.id AND t.kind = 'audio' AND t.language = ?)")
		args = append(args, filter.AudioLang)
	}
	switch filter.Subtitles {
	case "":
		// no constraint
	case "none":
		where = append(where, "NOT EXISTS (SELECT 1 FROM tracks t WHERE t.file_id = f.id AND t.kind = 'subtitle')")
	case "any":
		where = append(where, "EXISTS (SELECT 1 FROM tracks t WHERE t.file_id = f.id AND t.kind = 'subtitle')")
	default:
		where = append(where, "EXISTS (SELECT 1 FROM tracks t WHERE t.file_id = f.id AND t.kind = 'subtitle' AND t.language = ?)")
		args = append(args, filter.Subtitles)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM files f " + whereClause
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT f.id, f.path, f.filename, f.directory, f.extension, f.size_bytes, f.modified_at,
			f.content_hash, f.container_format, f.scanned_at, f.scan_status, f.scan_error, f.plugin_metadata
		FROM files f %s ORDER BY f.path LIMIT ? OFFSET ?
	`, whereClause)
	rows, err := s.db.Query(query, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *f)
	}
	return out, total, rows.Err()
}

// resolutionBucketExpr buckets a track's height into the closed set of
// resolution tokens the policy document format uses (spec.md §6.4), so
// library search can filter on the same vocabulary a policy targets.
func resolutionBucketExpr(alias string) string {
	return fmt.Sprintf(`CASE
		WHEN %[1]s.height <= 480 THEN '480p'
		WHEN %[1]s.height <= 720 THEN '720p'
		WHEN %[1]s.height <= 1080 THEN '1080p'
		WHEN %[1]s.height <= 1440 THEN '1440p'
		WHEN %[1]s.height <= 2160 THEN '2160p'
		ELSE '8k'
	END`, alias)
}

// JobFilter narrows ListJobsFiltered's result set (spec.md §6.3
// "GET /api/jobs?status&type&since&search&sort&order&limit&offset").
type JobFilter struct {
	Status string
	Type   string
	Since  string // RFC3339; matches created_at >= Since
	Search string // substring match against file_path
	Sort   string // "created_at" or "priority"; default "created_at"
	Order  string // "asc" or "desc"; default "desc"
	Limit  int
	Offset int
}

// ListJobsFiltered returns the page of jobs matching filter plus the
// total match count.
func (s *Store) ListJobsFiltered(filter JobFilter) ([]domain.Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where = append(where, "job_type = ?")
		args = append(args, filter.Type)
	}
	if filter.Since != "" {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since)
	}
	if filter.Search != "" {
		where = append(where, "file_path LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM jobs "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	sortCol := "created_at"
	if filter.Sort == "priority" {
		sortCol = "priority"
	}
	order := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		order = "ASC"
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, file_id, file_path, job_type, status, priority, policy_name, policy_json,
			progress_percent, progress_json, created_at, started_at, completed_at, worker_id,
			summary_json, error_message, output_path
		FROM jobs %s ORDER BY %s %s LIMIT ? OFFSET ?
	`, whereClause, sortCol, order)
	rows, err := s.db.Query(query, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}
	return out, total, rows.Err()
}

// ListOperationsByJob returns every operation recorded against jobID,
// oldest first — the backing data for the job-logs endpoint (spec.md
// §6.3 "GET /api/jobs/{id}/logs").
func (s *Store) ListOperationsByJob(jobID string, limit, offset int) ([]domain.Operation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM operations WHERE job_id = ?", jobID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count operations: %w", err)
	}

	l, o := pageBounds(limit, offset)
	rows, err := s.db.Query(`
		SELECT id, file_id, job_id, operation_type, status, created_at, completed_at, backup_path, details_json
		FROM operations WHERE job_id = ? ORDER BY created_at ASC LIMIT ? OFFSET ?
	`, jobID, l, o)
	if err != nil {
		return nil, 0, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []domain.Operation
	for rows.Next() {
		var op domain.Operation
		var status, createdAt string
		var completedAt sql.NullString
		if err := rows.Scan(&op.ID, &op.FileID, &op.JobID, &op.OperationType, &status, &createdAt, &completedAt, &op.BackupPath, &op.DetailsJSON); err != nil {
			return nil, 0, err
		}
		op.Status = domain.OperationStatus(status)
		op.CreatedAt = parseTime(createdAt)
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			op.CompletedAt = &t
		}
		out = append(out, op)
	}
	return out, total, rows.Err()
}

// TranscriptionRow pairs a transcription result with its parent file's
// path, the shape GET /api/transcriptions needs without forcing callers
// to join files themselves.
type TranscriptionRow struct {
	domain.TranscriptionResult
	FilePath string
}

// ListTranscriptions returns a page of transcription results across all
// tracks. When showAll is false, only rows with a non-"main" TrackType
// or a confidence below 0.5 are returned — the "needs review" subset
// (spec.md §6.3 "GET /api/transcriptions?show_all").
func (s *Store) ListTranscriptions(showAll bool, limit, offset int) ([]TranscriptionRow, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := ""
	if !showAll {
		where = "WHERE tr.track_type != 'main' OR tr.confidence_score < 0.5"
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM transcription_results tr
		JOIN tracks t ON t.id = tr.track_id
		JOIN files f ON f.id = t.file_id %s
	`, where)
	if err := s.db.QueryRow(countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transcriptions: %w", err)
	}

	l, o := pageBounds(limit, offset)
	query := fmt.Sprintf(`
		SELECT tr.track_id, tr.file_hash, tr.detected_language, tr.confidence_score, tr.track_type,
			tr.plugin_name, tr.transcript_sample, tr.segments_json, tr.created_at, f.path
		FROM transcription_results tr
		JOIN tracks t ON t.id = tr.track_id
		JOIN files f ON f.id = t.file_id %s
		ORDER BY tr.created_at DESC LIMIT ? OFFSET ?
	`, where)
	rows, err := s.db.Query(query, l, o)
	if err != nil {
		return nil, 0, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	var out []TranscriptionRow
	for rows.Next() {
		var row TranscriptionRow
		var trackType, createdAt, segJSON string
		if err := rows.Scan(&row.TrackID, &row.FileHash, &row.DetectedLanguage, &row.ConfidenceScore,
			&trackType, &row.PluginName, &row.TranscriptSample, &segJSON, &createdAt, &row.FilePath); err != nil {
			return nil, 0, err
		}
		row.TrackType = domain.TranscriptionTrackType(trackType)
		row.CreatedAt = parseTime(createdAt)
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}
