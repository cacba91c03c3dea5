package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shadow/internal/services"
)

// Transition moves a capture from one status to another. The update is a
// compare-and-set on the current status so concurrent callers cannot both win.
func (s *Store) Transition(ctx context.Context, id string, from, to Status) error {
	if err := CheckTransition(from, to); err != nil {
		return err
	}
	now := formatTime(time.Now())

	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{to, now}
	switch {
	case to == StatusProcessing && from == StatusFailed:
		sets = append(sets, "processing_started_at = NULL", "processing_completed_at = NULL")
	case to == StatusProcessing:
		sets = append(sets, "processing_completed_at = NULL")
	case completesProcessing(to):
		sets = append(sets, "processing_completed_at = ?")
		args = append(args, now)
	case to == StatusPublished:
		sets = append(sets, "published_at = ?")
		args = append(args, now)
	case to == StatusArchived:
		sets = append(sets, "archived_at = ?")
		args = append(args, now)
	}
	args = append(args, id, from)

	res, err := s.execWithRetry(ctx,
		`UPDATE captures SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return fmt.Errorf("transition capture: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows: %w", err)
	}
	if affected == 0 {
		return s.explainMissedTransition(ctx, id, from, to)
	}
	return nil
}

func (s *Store) explainMissedTransition(ctx context.Context, id string, from, to Status) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("capture %s: %w", id, services.ErrNotFound)
	}
	return services.InvalidOperation(fmt.Sprintf(
		"cannot move capture from %s to %s: status is %s", from, to, current.Status))
}

// TransitionFromCurrent reads the current status and applies a legal change.
func (s *Store) TransitionFromCurrent(ctx context.Context, id string, to Status) (*Capture, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("capture %s: %w", id, services.ErrNotFound)
	}
	if err := s.Transition(ctx, id, current.Status, to); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ForceFailed marks a PROCESSING capture FAILED. It is a no-op for any other
// status so a late failure cannot clobber a completed run.
func (s *Store) ForceFailed(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(ctx,
		`UPDATE captures SET status = ?, processing_completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed, now, now, id, StatusProcessing,
	); err != nil {
		return fmt.Errorf("force failed: %w", err)
	}
	return nil
}

// MarkStarted stamps processing_started_at.
func (s *Store) MarkStarted(ctx context.Context, id string, at time.Time) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE captures SET processing_started_at = ?, updated_at = ? WHERE id = ?`,
		formatTime(at), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark started: %w", err)
	}
	return requireRow(res, id)
}

// SaveTranscript commits the transcript text and, when known, the duration.
func (s *Store) SaveTranscript(ctx context.Context, id, text string, durationSeconds int) error {
	query := `UPDATE captures SET transcript = ?, updated_at = ? WHERE id = ?`
	args := []any{text, formatTime(time.Now()), id}
	if durationSeconds > 0 {
		query = `UPDATE captures SET transcript = ?, duration_seconds = ?, updated_at = ? WHERE id = ?`
		args = []any{text, durationSeconds, formatTime(time.Now()), id}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return requireRow(res, id)
}

// AcquireLease claims a PROCESSING capture for one lease holder until ttl
// elapses. It returns false when the capture is in any other status or when
// an unexpired lease is held, including one held by the same owner.
func (s *Store) AcquireLease(ctx context.Context, id, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	res, err := s.execWithRetry(ctx,
		`UPDATE captures SET claimed_by = ?, lease_expires_at = ?, updated_at = ?
         WHERE id = ? AND status = ?
           AND (claimed_by IS NULL OR lease_expires_at IS NULL OR lease_expires_at < ?)`,
		owner, formatTime(now.Add(ttl)), formatTime(now), id, string(StatusProcessing), formatTime(now))
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease rows: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLease drops the lease if owner still holds it.
func (s *Store) ReleaseLease(ctx context.Context, id, owner string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE captures SET claimed_by = NULL, lease_expires_at = NULL WHERE id = ? AND claimed_by = ?`,
		id, owner); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
