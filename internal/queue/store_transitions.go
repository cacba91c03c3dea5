package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimNext marks the oldest runnable job as running for workerID and returns
// it. It returns nil, nil when nothing is runnable. Each worker holds at most
// one claimed job at a time.
func (s *Store) ClaimNext(ctx context.Context, workerID string, now time.Time) (*Job, error) {
	ctx = ensureContext(ctx)
	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		claimed = nil
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var id int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE status IN (?, ?) AND run_after <= ? ORDER BY run_after, id LIMIT 1`,
			StatusQueued, StatusRetrying, formatTime(now),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		stamp := formatTime(now)
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, attempts = attempts + 1, worker_id = ?, heartbeat_at = ?, updated_at = ?
             WHERE id = ? AND status IN (?, ?)`,
			StatusRunning, workerID, stamp, stamp, id, StatusQueued, StatusRetrying)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err != nil || affected == 0 {
			return err
		}
		job, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return claimed, nil
}

// UpdateHeartbeat records that workerID is still running the job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64, workerID string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE jobs SET heartbeat_at = ?, updated_at = ? WHERE id = ? AND status = ? AND worker_id = ?`,
		now, now, id, StatusRunning, workerID,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// Complete marks a running job succeeded.
func (s *Store) Complete(ctx context.Context, id int64) error {
	return s.finish(ctx, id, StatusSucceeded, "", "")
}

// Fail marks a running job failed with a one-line reason.
func (s *Store) Fail(ctx context.Context, id int64, reason, kind string) error {
	return s.finish(ctx, id, StatusFailed, reason, kind)
}

// finish ends a running job. A success clears the error of any earlier
// attempt; a failure without a reason keeps it.
func (s *Store) finish(ctx context.Context, id int64, status Status, reason, kind string) error {
	errorColumns := `last_error = COALESCE(?, last_error), error_kind = COALESCE(?, error_kind)`
	if status == StatusSucceeded {
		errorColumns = `last_error = ?, error_kind = ?`
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, `+errorColumns+`,
             worker_id = NULL, heartbeat_at = NULL, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		status, nullableString(reason), nullableString(kind), now, now, id, StatusRunning)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return requireRunning(res, id)
}

// ScheduleRetry returns a running job to the runnable set after at.
func (s *Store) ScheduleRetry(ctx context.Context, id int64, at time.Time, reason, kind string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, run_after = ?, last_error = ?, error_kind = ?,
             worker_id = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRetrying, formatTime(at), nullableString(reason), nullableString(kind),
		formatTime(time.Now()), id, StatusRunning)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}
	return requireRunning(res, id)
}

// ReclaimStale returns running jobs whose heartbeat is older than cutoff to
// the queue so another worker can pick them up.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, worker_id = NULL, heartbeat_at = NULL, run_after = ?, updated_at = ?
         WHERE status = ? AND (heartbeat_at IS NULL OR heartbeat_at < ?)`,
		StatusQueued, now, now, StatusRunning, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetRunning requeues every running job. The daemon calls it at start-up,
// when no worker can still own one.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, worker_id = NULL, heartbeat_at = NULL, run_after = ?, updated_at = ?
         WHERE status = ?`,
		StatusQueued, now, now, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

func requireRunning(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not running", id)
	}
	return nil
}
