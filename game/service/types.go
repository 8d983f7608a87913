package service

import (
	"errors"
	"time"

	"github.com/arcadelab/fruitbot-server/game/session"
)

// Sentinel errors for request validation and connection resolution.
var (
	// ErrInvalidPlayerName rejects start_game events with an empty or
	// whitespace-only player name.
	ErrInvalidPlayerName = errors.New("player name must not be empty")

	// ErrNoSession means the connection has not started a game yet, or its
	// session was retired.
	ErrNoSession = errors.New("no active game session for this connection")
)

// StartResult is the reply to a game start: the initial observation, plus any
// connections that lost their binding to the player and should be told to
// disconnect.
type StartResult struct {
	Update  *session.StepResult
	Evicted []string
}

// Stats summarizes server load for the health endpoint.
type Stats struct {
	ActiveConnections int       `json:"active_connections"`
	ActiveGames       int       `json:"active_games"`
	Timestamp         time.Time `json:"timestamp"`
}
