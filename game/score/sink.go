package score

import (
	"context"
	"time"
)

// Entry is one recorded final score.
type Entry struct {
	UserID     string  `json:"user_id"`
	RecordedAt string  `json:"timestamp"`
	Score      float64 `json:"final_score"`
}

// Sink is the append-only destination for final episode scores. Recording is
// best-effort: callers log and swallow failures so score persistence never
// blocks frame delivery.
type Sink interface {
	// Record appends one final score.
	Record(ctx context.Context, userID string, recordedAt time.Time, score float64) error

	// RecentScores returns the most recently recorded entries, newest first.
	RecentScores(ctx context.Context, limit int) ([]Entry, error)

	Close() error
}
