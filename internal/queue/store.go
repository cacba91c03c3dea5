package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue adds a job for captureID. When the capture already has an active
// job, that job is returned instead of creating a duplicate.
func (s *Store) Enqueue(ctx context.Context, captureID string, maxRetries int) (*Job, error) {
	captureID = strings.TrimSpace(captureID)
	if captureID == "" {
		return nil, errors.New("enqueue: capture id required")
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	ctx = ensureContext(ctx)

	var id int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		err = tx.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE capture_id = ? AND status IN (?, ?, ?) ORDER BY id LIMIT 1`,
			captureID, StatusQueued, StatusRunning, StatusRetrying,
		).Scan(&id)
		switch {
		case err == nil:
			return tx.Commit()
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		now := formatTime(time.Now())
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (capture_id, status, attempts, max_retries, run_after, created_at, updated_at)
             VALUES (?, ?, 0, ?, ?, ?, ?)`,
			captureID, StatusQueued, maxRetries, now, now, now)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job. A missing job returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	}
	query += ` ORDER BY id DESC`
	return s.queryJobs(ctx, query, statusArgs(statuses)...)
}

// ForCapture returns every job recorded for a capture, newest first.
func (s *Store) ForCapture(ctx context.Context, captureID string) ([]*Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE capture_id = ? ORDER BY id DESC`, captureID)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Stats returns job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()
	stats := make(Stats)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// ClearFinished removes succeeded and failed jobs that finished before cutoff.
// A zero cutoff removes every finished job.
func (s *Store) ClearFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM jobs WHERE status IN (?, ?)`
	args := []any{StatusSucceeded, StatusFailed}
	if !cutoff.IsZero() {
		query += ` AND finished_at < ?`
		args = append(args, formatTime(cutoff))
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear finished jobs: %w", err)
	}
	return res.RowsAffected()
}
