package service

import (
	"context"

	"github.com/arcadelab/fruitbot-server/game/score"
	"github.com/arcadelab/fruitbot-server/game/session"
)

// GameService defines all player-facing game operations. Player-initiated
// operations are keyed by the transport connection that issued them; the
// service resolves the connection to its logical player.
type GameService interface {
	// Connection Lifecycle
	StartGame(ctx context.Context, connID, playerName string) (*StartResult, error)
	Disconnect(ctx context.Context, connID string)

	// Input
	KeyDown(ctx context.Context, connID, key string) error
	KeyUp(ctx context.Context, connID, key string) error
	SendAction(ctx context.Context, connID, action string) (*session.StepResult, error)

	// Episode Control
	NextEpisode(ctx context.Context, connID string) (*session.StepResult, error)
	ActivateGame(ctx context.Context, connID string) error

	// Observability
	Stats(ctx context.Context) Stats
	ListSessions(ctx context.Context) []session.Snapshot
	GetSession(ctx context.Context, userID string) (*session.Snapshot, error)
	RecentScores(ctx context.Context, limit int) ([]score.Entry, error)

	// Maintenance
	SweepStale(ctx context.Context) int
	Shutdown(ctx context.Context)
}
