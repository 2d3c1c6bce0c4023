package catalog

import (
	"database/sql"
	"time"

	"github.com/randomparity/vpo/internal/domain"
)

// InsertOperation records a new executor invocation (spec.md §3.4) and
// returns its id.
func (s *Store) InsertOperation(op domain.Operation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO operations (file_id, job_id, operation_type, status, created_at, backup_path, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, op.FileID, op.JobID, op.OperationType, string(op.Status), formatTime(op.CreatedAt), op.BackupPath, op.DetailsJSON)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CompleteOperation marks an operation row completed or failed.
func (s *Store) CompleteOperation(id int64, status domain.OperationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"UPDATE operations SET status = ?, completed_at = ? WHERE id = ?",
		string(status), formatTime(time.Now()), id,
	)
	return err
}

// ListOperations returns every operation recorded for a file, newest first.
func (s *Store) ListOperations(fileID int64) ([]domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, file_id, job_id, operation_type, status, created_at, completed_at, backup_path, details_json
		FROM operations WHERE file_id = ? ORDER BY created_at DESC
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Operation
	for rows.Next() {
		var op domain.Operation
		var status, createdAt string
		var completedAt sql.NullString
		if err := rows.Scan(&op.ID, &op.FileID, &op.JobID, &op.OperationType, &status, &createdAt, &completedAt, &op.BackupPath, &op.DetailsJSON); err != nil {
			return nil, err
		}
		op.Status = domain.OperationStatus(status)
		op.CreatedAt = parseTime(createdAt)
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			op.CompletedAt = &t
		}
		out = append(out, op)
	}
	return out, rows.Err()
}
