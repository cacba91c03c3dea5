package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, capture_id, status, attempts, max_retries, run_after, last_error, error_kind, worker_id, heartbeat_at, created_at, updated_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		statusStr    string
		runAfterRaw  string
		lastError    sql.NullString
		errorKind    sql.NullString
		workerID     sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&job.ID, &job.CaptureID, &statusStr, &job.Attempts, &job.MaxRetries, &runAfterRaw,
		&lastError, &errorKind, &workerID, &heartbeatRaw, &createdRaw, &updatedRaw, &finishedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(statusStr)
	job.LastError = lastError.String
	job.ErrorKind = errorKind.String
	job.WorkerID = workerID.String
	if t, err := parseTimeString(runAfterRaw); err == nil {
		job.RunAfter = t
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	job.HeartbeatAt = optionalTime(heartbeatRaw)
	job.FinishedAt = optionalTime(finishedRaw)
	return &job, nil
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

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
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

func statusArgs(statuses []Status) []any {
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	return args
}
