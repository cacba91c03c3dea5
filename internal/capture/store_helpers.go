package capture

import (
	"database/sql"
	"errors"
	"time"
)

const captureColumns = "id, title, description, status, media_ref, transcript, duration_seconds, executive_summary, key_takeaways_json, quality_score, tags_json, processing_started_at, processing_completed_at, published_at, archived_at, claimed_by, lease_expires_at, created_at, updated_at"

func scanCapture(scanner interface{ Scan(dest ...any) error }) (*Capture, error) {
	var (
		id           string
		title        string
		description  sql.NullString
		statusStr    string
		mediaRef     sql.NullString
		transcript   sql.NullString
		duration     sql.NullInt64
		summary      sql.NullString
		takeaways    sql.NullString
		quality      sql.NullInt64
		tags         sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		publishedRaw sql.NullString
		archivedRaw  sql.NullString
		claimedBy    sql.NullString
		leaseRaw     sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id, &title, &description, &statusStr, &mediaRef, &transcript, &duration,
		&summary, &takeaways, &quality, &tags,
		&startedRaw, &completedRaw, &publishedRaw, &archivedRaw,
		&claimedBy, &leaseRaw, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	c := &Capture{
		ID:                    id,
		Title:                 title,
		Description:           description.String,
		Status:                Status(statusStr),
		MediaRef:              mediaRef.String,
		Transcript:            transcript.String,
		DurationSeconds:       int(duration.Int64),
		ExecutiveSummary:      summary.String,
		KeyTakeaways:          decodeStrings(takeaways.String),
		Tags:                  decodeStrings(tags.String),
		ProcessingStartedAt:   optionalTime(startedRaw),
		ProcessingCompletedAt: optionalTime(completedRaw),
		PublishedAt:           optionalTime(publishedRaw),
		ArchivedAt:            optionalTime(archivedRaw),
		ClaimedBy:             claimedBy.String,
		LeaseExpiresAt:        optionalTime(leaseRaw),
	}
	if quality.Valid {
		score := int(quality.Int64)
		c.QualityScore = &score
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		c.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		c.UpdatedAt = updated
	}
	return c, nil
}

func optionalTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
