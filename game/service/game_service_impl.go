package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/arcadelab/fruitbot-server/game/config"
	"github.com/arcadelab/fruitbot-server/game/engine"
	"github.com/arcadelab/fruitbot-server/game/score"
	"github.com/arcadelab/fruitbot-server/game/session"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	reg     *session.Registry
	pub     session.Publisher
	scores  score.Sink
	factory engine.Factory
	mode    config.InputMode
	loopCfg session.LoopConfig
	log     log15.Logger
}

// NewGameService creates a new game service instance. scores may be nil to
// disable persistence.
func NewGameService(reg *session.Registry, pub session.Publisher, scores score.Sink,
	factory engine.Factory, cfg *config.Config, log log15.Logger) GameService {
	return &gameServiceImpl{
		reg:     reg,
		pub:     pub,
		scores:  scores,
		factory: factory,
		mode:    cfg.InputMode,
		loopCfg: session.LoopConfig{
			TickInterval: cfg.TickInterval(),
			WarmupDelay:  cfg.WarmupDelay,
			IdleBackoff:  cfg.IdleBackoff,
		},
		log: log,
	}
}

// StartGame binds the connection to the player and starts their first episode.
// In hold mode the start is exclusive: prior sessions are replaced and other
// connections of the same player are evicted. In discrete and auto modes an
// existing session is reused so additional tabs share its frame stream.
func (s *gameServiceImpl) StartGame(ctx context.Context, connID, playerName string) (*StartResult, error) {
	userID := strings.TrimSpace(playerName)
	if userID == "" {
		return nil, ErrInvalidPlayerName
	}

	var (
		sess    *session.Session
		evicted []string
		err     error
	)
	if s.mode == config.InputModeHold {
		evicted = s.reg.BindExclusive(connID, userID)
		sess, err = s.reg.ReplaceSession(userID, s.factory)
	} else {
		s.reg.Bind(connID, userID)
		sess, _, err = s.reg.GetOrCreateSession(userID, s.factory)
	}
	if err != nil {
		return nil, fmt.Errorf("start game for %s: %w", userID, err)
	}

	update, err := sess.StartEpisode()
	if err != nil {
		s.reg.RetireSession(userID)
		return nil, fmt.Errorf("start episode for %s: %w", userID, err)
	}

	// Discrete sessions only move on explicit send_action events; they get
	// no tick loop at all.
	if s.mode != config.InputModeDiscrete {
		sess.SetRunning(true)
		s.startLoop(userID)
	}

	s.log.Info("game started", "user", userID, "conn", connID,
		"episode", update.Episode, "evicted", len(evicted))
	return &StartResult{Update: update, Evicted: evicted}, nil
}

// Disconnect unbinds the connection and eagerly retires the player's session
// when their last connection goes away.
func (s *gameServiceImpl) Disconnect(ctx context.Context, connID string) {
	userID, remaining := s.reg.Unbind(connID)
	if userID == "" {
		return
	}
	s.log.Info("connection closed", "user", userID, "conn", connID, "remaining", remaining)
	if remaining == 0 {
		s.reg.RetireSession(userID)
	}
}

// KeyDown marks a key as held for the connection's session.
func (s *gameServiceImpl) KeyDown(ctx context.Context, connID, key string) error {
	sess, _, err := s.sessionFor(connID)
	if err != nil {
		return err
	}
	sess.KeyDown(key)
	return nil
}

// KeyUp releases a held key for the connection's session.
func (s *gameServiceImpl) KeyUp(ctx context.Context, connID, key string) error {
	sess, _, err := s.sessionFor(connID)
	if err != nil {
		return err
	}
	sess.KeyUp(key)
	return nil
}

// SendAction applies one discrete step and fans the result out to every
// connection of the player. A finished episode yields (nil, nil); the client
// must request next_episode.
func (s *gameServiceImpl) SendAction(ctx context.Context, connID, action string) (*session.StepResult, error) {
	sess, userID, err := s.sessionFor(connID)
	if err != nil {
		return nil, err
	}
	act, err := engine.ParseAction(action)
	if err != nil {
		return nil, err
	}

	result, err := sess.Step(act)
	if err != nil {
		s.log.Error("action step failed, retiring session", "user", userID, "err", err)
		s.reg.RetireSession(userID)
		return nil, fmt.Errorf("step for %s: %w", userID, err)
	}
	if result == nil {
		return nil, nil
	}

	if result.EpisodeFinished {
		s.recordScore(userID, result.Score)
	}
	s.pub.Publish(userID, result)
	return result, nil
}

// NextEpisode begins the next episode on the connection's session and resumes
// the loop. The initial observation is fanned out like a regular update.
func (s *gameServiceImpl) NextEpisode(ctx context.Context, connID string) (*session.StepResult, error) {
	sess, userID, err := s.sessionFor(connID)
	if err != nil {
		return nil, err
	}

	update, err := sess.StartEpisode()
	if err != nil {
		s.log.Error("episode start failed, retiring session", "user", userID, "err", err)
		s.reg.RetireSession(userID)
		return nil, fmt.Errorf("next episode for %s: %w", userID, err)
	}

	if s.mode != config.InputModeDiscrete {
		sess.SetRunning(true)
		if !s.reg.HasLoop(userID) {
			s.startLoop(userID)
		}
	}

	s.pub.Publish(userID, update)
	s.log.Info("episode started", "user", userID, "episode", update.Episode)
	return update, nil
}

// ActivateGame marks an auto-driven session ready to advance.
func (s *gameServiceImpl) ActivateGame(ctx context.Context, connID string) error {
	sess, userID, err := s.sessionFor(connID)
	if err != nil {
		return err
	}
	sess.Activate()
	s.log.Debug("game activated", "user", userID)
	return nil
}

// Stats reports current load counters.
func (s *gameServiceImpl) Stats(ctx context.Context) Stats {
	conns, sessions := s.reg.Counts()
	return Stats{
		ActiveConnections: conns,
		ActiveGames:       sessions,
		Timestamp:         time.Now().UTC(),
	}
}

// ListSessions returns observability snapshots of every live session.
func (s *gameServiceImpl) ListSessions(ctx context.Context) []session.Snapshot {
	return s.reg.Snapshots()
}

// GetSession returns the snapshot for one player.
func (s *gameServiceImpl) GetSession(ctx context.Context, userID string) (*session.Snapshot, error) {
	sess, ok := s.reg.Session(userID)
	if !ok {
		return nil, ErrNoSession
	}
	snap := sess.Snapshot()
	snap.UserID = userID
	return &snap, nil
}

// RecentScores returns the most recently recorded final scores.
func (s *gameServiceImpl) RecentScores(ctx context.Context, limit int) ([]score.Entry, error) {
	if s.scores == nil {
		return []score.Entry{}, nil
	}
	return s.scores.RecentScores(ctx, limit)
}

// SweepStale retires every session whose player has no bound connection.
func (s *gameServiceImpl) SweepStale(ctx context.Context) int {
	swept := s.reg.SweepStale(s.reg.ActiveUsers())
	if swept > 0 {
		s.log.Info("idle sweep complete", "retired", swept)
	}
	return swept
}

// Shutdown retires every session, awaiting loop termination.
func (s *gameServiceImpl) Shutdown(ctx context.Context) {
	s.reg.RetireAll()
}

// sessionFor resolves a connection to its player and live session.
func (s *gameServiceImpl) sessionFor(connID string) (*session.Session, string, error) {
	userID, ok := s.reg.UserFor(connID)
	if !ok {
		return nil, "", ErrNoSession
	}
	sess, ok := s.reg.Session(userID)
	if !ok {
		return nil, "", ErrNoSession
	}
	return sess, userID, nil
}

func (s *gameServiceImpl) startLoop(userID string) {
	loop := session.NewTickLoop(userID, s.reg, s.pub, s.scores, s.loopCfg, s.log)
	s.reg.StartLoop(userID, loop.Run)
}

// recordScore persists a final score reached through the discrete path. The
// continuous path records from inside the tick loop.
func (s *gameServiceImpl) recordScore(userID string, finalScore float64) {
	if s.scores == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.scores.Record(ctx, userID, time.Now(), finalScore); err != nil {
		s.log.Warn("failed to record final score", "user", userID, "err", err)
	}
}
