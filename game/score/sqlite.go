package score

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timestampLayout matches the format historically written by the deployment
// this server replaces, keeping old and new rows queryable together.
const timestampLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	final_score REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_users_user_id ON users (user_id);
`

// SQLiteSink persists final scores in SQLite.
type SQLiteSink struct {
	db *sql.DB
}

var _ Sink = (*SQLiteSink)(nil)

// Open opens (creating if necessary) a SQLite score sink at path.
func Open(path string) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("score db path is required")
	}
	// The _pragma form is the one this driver honors; it applies the pragmas
	// on every pooled connection.
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open score db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping score db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply score schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Record appends one final score.
func (s *SQLiteSink) Record(ctx context.Context, userID string, recordedAt time.Time, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, timestamp, final_score) VALUES (?, ?, ?)`,
		userID, recordedAt.UTC().Format(timestampLayout), score)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// RecentScores returns the most recently recorded entries, newest first.
func (s *SQLiteSink) RecentScores(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, timestamp, final_score FROM users ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.RecordedAt, &e.Score); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return entries, nil
}

// Close closes the SQLite handle.
func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
