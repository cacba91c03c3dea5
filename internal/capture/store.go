package capture

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"shadow/internal/config"
	"shadow/internal/services"
)

// Store manages capture persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the capture database.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("capture store requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the capture database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// sqliteDSN applies pragmas on every pooled connection; foreign_keys is
// connection scoped and cascades depend on it.
func sqliteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + params.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a capture in CAPTURING.
func (s *Store) Create(ctx context.Context, params NewCaptureParams) (*Capture, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "capture", "create", "title is required", nil)
	}
	tags, err := encodeStrings(params.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	id := uuid.NewString()
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO captures (id, title, description, status, media_ref, tags_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, title, nullableString(params.Description), StatusCapturing,
		nullableString(strings.TrimSpace(params.MediaRef)), tags, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert capture: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a capture. A missing capture returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Capture, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+captureColumns+` FROM captures WHERE id = ?`, id)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capture: %w", err)
	}
	return c, nil
}

// List returns captures newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var out []*Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return out, nil
}

// Stats returns capture counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(*) FROM captures GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("capture stats: %w", err)
	}
	defer rows.Close()
	stats := make(Stats)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// SetMediaRef attaches raw media to a capture.
func (s *Store) SetMediaRef(ctx context.Context, id, ref string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE captures SET media_ref = ?, updated_at = ? WHERE id = ?`,
		nullableString(strings.TrimSpace(ref)), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set media ref: %w", err)
	}
	return requireRow(res, id)
}

// Delete removes a capture together with its chapters and decision points.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete capture: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete capture rows: %w", err)
	}
	return affected > 0, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("capture %s: %w", id, services.ErrNotFound)
	}
	return nil
}

func encodeStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeStrings(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
