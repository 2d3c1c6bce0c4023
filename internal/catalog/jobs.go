package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/randomparity/vpo/internal/domain"
)

// EnqueueJob inserts a new job row in status queued (spec.md §4.11).
func (s *Store) EnqueueJob(j domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO jobs (id, file_id, file_path, job_type, status, priority, policy_name,
			policy_json, progress_percent, progress_json, created_at, started_at, completed_at,
			worker_id, summary_json, error_message, output_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, '', '', '', '')
	`,
		j.ID, j.FileID, j.FilePath, string(j.JobType), string(domain.JobQueued), j.Priority,
		j.PolicyName, j.PolicyJSON, j.ProgressPercent, j.ProgressJSON, formatTime(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// FileIDsWithOpenJobs returns the set of file IDs that have a job in
// status queued or running, so callers (the scan-enqueue loop) can skip
// re-enqueuing a file that's already in flight.
func (s *Store) FileIDsWithOpenJobs() (map[int64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT DISTINCT file_id FROM jobs WHERE status IN (?, ?)`,
		string(domain.JobQueued), string(domain.JobRunning))
	if err != nil {
		return nil, fmt.Errorf("query open job file ids: %w", err)
	}
	defer rows.Close()

	open := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan open job file id: %w", err)
		}
		open[id] = true
	}
	return open, rows.Err()
}

// ClaimJob atomically selects the oldest queued job of highest priority
// (lowest priority number), transitions it to running, and returns it
// (spec.md §4.11: "implemented as a single UPDATE...WHERE...RETURNING
// over the oldest row, serialized by the writer mutex").
func (s *Store) ClaimJob(workerID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now())
	row := s.db.QueryRow(`
		UPDATE jobs SET status = ?, started_at = ?, worker_id = ?
		WHERE id = (
			SELECT id FROM jobs WHERE status = ?
			ORDER BY priority ASC, created_at ASC LIMIT 1
		)
		RETURNING id, file_id, file_path, job_type, status, priority, policy_name, policy_json,
			progress_percent, progress_json, created_at, started_at, completed_at, worker_id,
			summary_json, error_message, output_path
	`, string(domain.JobRunning), now, workerID, string(domain.JobQueued))

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

// ReportProgress updates a running job's progress (spec.md §4.11).
func (s *Store) ReportProgress(jobID string, percent float64, detailJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"UPDATE jobs SET progress_percent = ?, progress_json = ? WHERE id = ?",
		percent, detailJSON, jobID,
	)
	return err
}

// CompleteJob marks a job completed with a summary and optional output path.
func (s *Store) CompleteJob(jobID, summaryJSON, outputPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"UPDATE jobs SET status = ?, summary_json = ?, output_path = ?, completed_at = ? WHERE id = ?",
		string(domain.JobCompleted), summaryJSON, outputPath, formatTime(time.Now()), jobID,
	)
	return err
}

// FailJob marks a job failed with an error message.
func (s *Store) FailJob(jobID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"UPDATE jobs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?",
		string(domain.JobFailed), errMsg, formatTime(time.Now()), jobID,
	)
	return err
}

// CancelJob marks a job cancelled with a reason (spec.md §4.11).
func (s *Store) CancelJob(jobID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"UPDATE jobs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?",
		string(domain.JobCancelled), reason, formatTime(time.Now()), jobID,
	)
	return err
}

// GetJob returns a job by id, or nil if not found.
func (s *Store) GetJob(jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`
		SELECT id, file_id, file_path, job_type, status, priority, policy_name, policy_json,
			progress_percent, progress_json, created_at, started_at, completed_at, worker_id,
			summary_json, error_message, output_path
		FROM jobs WHERE id = ?
	`, jobID)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// ListJobsByStatus returns all jobs in the given status, oldest first.
func (s *Store) ListJobsByStatus(status domain.JobStatus) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, file_id, file_path, job_type, status, priority, policy_name, policy_json,
			progress_percent, progress_json, created_at, started_at, completed_at, worker_id,
			summary_json, error_message, output_path
		FROM jobs WHERE status = ? ORDER BY priority ASC, created_at ASC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// DeleteTerminatedJobsOlderThan deletes completed/failed/cancelled jobs
// whose completed_at predates cutoff, returning the count removed
// (spec.md §4.11 retention).
func (s *Store) DeleteTerminatedJobsOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		DELETE FROM jobs
		WHERE status IN (?, ?, ?) AND completed_at IS NOT NULL AND completed_at < ?
	`, string(domain.JobCompleted), string(domain.JobFailed), string(domain.JobCancelled), formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ResetRunningJobs resets all running jobs back to queued, for recovery
// after an unclean shutdown.
func (s *Store) ResetRunningJobs() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"UPDATE jobs SET status = ?, worker_id = '', started_at = NULL WHERE status = ?",
		string(domain.JobQueued), string(domain.JobRunning),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RequeueJob resets a single running job back to queued, used when a
// worker pool pauses or shrinks and hands an in-flight job back to the
// queue instead of losing it (spec.md §4.11 cancellation/pause semantics).
func (s *Store) RequeueJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"UPDATE jobs SET status = ?, worker_id = '', started_at = NULL WHERE id = ?",
		string(domain.JobQueued), jobID,
	)
	return err
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var status, jobType string
	var startedAt, completedAt sql.NullString
	var createdAt string

	if err := row.Scan(
		&j.ID, &j.FileID, &j.FilePath, &jobType, &status, &j.Priority, &j.PolicyName, &j.PolicyJSON,
		&j.ProgressPercent, &j.ProgressJSON, &createdAt, &startedAt, &completedAt, &j.WorkerID,
		&j.SummaryJSON, &j.ErrorMessage, &j.OutputPath,
	); err != nil {
		return nil, err
	}
	j.JobType = domain.JobType(jobType)
	j.Status = domain.JobStatus(status)
	j.CreatedAt = parseTime(createdAt)
	if startedAt.Valid {
		t := parseTime(startedAt.String)
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		j.CompletedAt = &t
	}
	return &j, nil
}
