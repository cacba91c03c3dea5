package capture

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReplaceAnalysis swaps the chapters, decision points and summary of a
// capture in one transaction. Reruns replace rather than append.
func (s *Store) ReplaceAnalysis(ctx context.Context, id string, analysis Analysis, chapters []Chapter, points []DecisionPoint) error {
	takeaways, err := encodeStrings(analysis.KeyTakeaways)
	if err != nil {
		return fmt.Errorf("encode takeaways: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM decision_points WHERE capture_id = ?`, id); err != nil {
			return fmt.Errorf("clear decision points: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE capture_id = ?`, id); err != nil {
			return fmt.Errorf("clear chapters: %w", err)
		}

		stored := make([]Chapter, 0, len(chapters))
		for i, ch := range chapters {
			ch.ID = uuid.NewString()
			ch.CaptureID = id
			ch.OrderIndex = i
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chapters (id, capture_id, order_index, title, start_seconds, end_seconds, summary)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				ch.ID, id, ch.OrderIndex, ch.Title, ch.StartSeconds, ch.EndSeconds, nullableString(ch.Summary),
			); err != nil {
				return fmt.Errorf("insert chapter %d: %w", i, err)
			}
			stored = append(stored, ch)
		}

		for i, dp := range points {
			alternatives, err := encodeStrings(dp.Alternatives)
			if err != nil {
				return fmt.Errorf("encode alternatives: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO decision_points (id, capture_id, chapter_id, order_index, timestamp_seconds, description,
                 reasoning, alternatives_json, context_before, confidence, user_verified)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), id, nullableString(chapterFor(stored, dp.TimestampSeconds)), i,
				dp.TimestampSeconds, dp.Description, dp.Reasoning, alternatives,
				nullableString(dp.ContextBefore), dp.Confidence, boolToInt(dp.UserVerified),
			); err != nil {
				return fmt.Errorf("insert decision point %d: %w", i, err)
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE captures SET executive_summary = ?, key_takeaways_json = ?, quality_score = ?, updated_at = ?
             WHERE id = ?`,
			analysis.ExecutiveSummary, takeaways, analysis.QualityScore, formatTime(time.Now()), id)
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		return requireRow(res, id)
	})
}

// chapterFor returns the id of the chapter whose range holds ts. The final
// chapter's end is inclusive.
func chapterFor(chapters []Chapter, ts float64) string {
	for i, ch := range chapters {
		last := i == len(chapters)-1
		if ts >= ch.StartSeconds && (ts < ch.EndSeconds || (last && ts <= ch.EndSeconds)) {
			return ch.ID
		}
	}
	return ""
}

// Chapters returns a capture's chapters in order.
func (s *Store) Chapters(ctx context.Context, id string) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, capture_id, order_index, title, start_seconds, end_seconds, summary
         FROM chapters WHERE capture_id = ? ORDER BY order_index`, id)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		var ch Chapter
		var summary sql.NullString
		if err := rows.Scan(&ch.ID, &ch.CaptureID, &ch.OrderIndex, &ch.Title, &ch.StartSeconds, &ch.EndSeconds, &summary); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		ch.Summary = summary.String
		out = append(out, ch)
	}
	return out, rows.Err()
}

// DecisionPoints returns a capture's decision points in order.
func (s *Store) DecisionPoints(ctx context.Context, id string) ([]DecisionPoint, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, capture_id, chapter_id, order_index, timestamp_seconds, description, reasoning,
                alternatives_json, context_before, confidence, user_verified
         FROM decision_points WHERE capture_id = ? ORDER BY order_index`, id)
	if err != nil {
		return nil, fmt.Errorf("list decision points: %w", err)
	}
	defer rows.Close()

	var out []DecisionPoint
	for rows.Next() {
		var (
			dp           DecisionPoint
			chapterID    sql.NullString
			alternatives sql.NullString
			contextText  sql.NullString
			verified     int
		)
		if err := rows.Scan(&dp.ID, &dp.CaptureID, &chapterID, &dp.OrderIndex, &dp.TimestampSeconds,
			&dp.Description, &dp.Reasoning, &alternatives, &contextText, &dp.Confidence, &verified); err != nil {
			return nil, fmt.Errorf("scan decision point: %w", err)
		}
		dp.ChapterID = chapterID.String
		dp.ContextBefore = contextText.String
		dp.UserVerified = verified != 0
		if alternatives.Valid {
			_ = json.Unmarshal([]byte(alternatives.String), &dp.Alternatives)
		}
		out = append(out, dp)
	}
	return out, rows.Err()
}
