package session

import (
	"math"
	"sync"
	"time"

	"github.com/arcadelab/fruitbot-server/game/config"
	"github.com/arcadelab/fruitbot-server/game/engine"
)

// StepResult is the record published to clients after each simulation step.
// Field names match the wire payloads the browser client already consumes.
type StepResult struct {
	Image           string  `json:"image"`
	Episode         int     `json:"episode"`
	Reward          float64 `json:"reward"`
	Done            bool    `json:"done"`
	Score           float64 `json:"score"`
	LastScore       float64 `json:"last_score"`
	EpisodeFinished bool    `json:"episode_finished"`
	StepCount       int     `json:"step_count"`
	Action          string  `json:"action,omitempty"`
}

// Snapshot is a read-only view of a session for observability surfaces.
type Snapshot struct {
	UserID          string    `json:"user_id"`
	Episode         int       `json:"episode"`
	Score           float64   `json:"score"`
	LastScore       float64   `json:"last_score"`
	StepCount       int       `json:"step_count"`
	Running         bool      `json:"running"`
	EpisodeFinished bool      `json:"episode_finished"`
	CreatedAt       time.Time `json:"created_at"`
}

// Session owns one engine instance plus the per-player mutable state: episode
// counter, score, step counter, and the currently held input keys. All access
// goes through the session mutex; the engine itself is only ever touched by
// the holder of that mutex, which in steady state is the session's tick loop.
type Session struct {
	mu   sync.Mutex
	eng  engine.Engine
	mode config.InputMode

	episodeNum int
	score      float64
	lastScore  float64
	stepCount  int
	hasObs     bool
	finished   bool
	running    bool
	ready      bool
	keys       map[string]struct{}
	createdAt  time.Time
}

// New wraps a fresh engine instance in a session. The caller transfers
// ownership of the engine; it is released when the session is retired.
func New(eng engine.Engine, mode config.InputMode) *Session {
	return &Session{
		eng:       eng,
		mode:      mode,
		keys:      make(map[string]struct{}),
		createdAt: time.Now(),
	}
}

// Reset starts a fresh episode on the engine and clears score, step counter,
// held keys, and the finished flag. Safe to call at any time; any in-flight
// episode state is discarded.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Session) resetLocked() error {
	if _, err := s.eng.Reset(); err != nil {
		return err
	}
	s.score = 0
	s.stepCount = 0
	s.finished = false
	s.hasObs = true
	s.keys = make(map[string]struct{})
	return nil
}

// StartEpisode begins the next episode: it bumps the episode counter, resets
// the engine, and performs one forced forward step, because the engine's
// immediate post-reset frame is not a playable frame. The returned result has
// reward 0 and done false regardless of what the forced step reported.
func (s *Session) StartEpisode() (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.episodeNum++
	if err := s.resetLocked(); err != nil {
		return nil, err
	}
	if _, err := s.eng.Step(engine.ActionForward); err != nil {
		return nil, err
	}
	// Render returns the frame produced by the forced step.
	img, err := engine.EncodeFrame(s.eng.Render())
	if err != nil {
		return nil, err
	}
	return &StepResult{
		Image:     img,
		Episode:   s.episodeNum,
		Score:     s.score,
		LastScore: s.lastScore,
		StepCount: s.stepCount,
	}, nil
}

// Step advances the episode by one action. Once the episode has finished it
// is a no-op returning (nil, nil) until the next StartEpisode, which guards
// against double-advancing a terminal episode.
//
// The per-step reward is rounded to one decimal at the point of accumulation
// so the score always equals the sum of the displayed rewards exactly.
func (s *Session) Step(action engine.Action) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil, nil
	}

	data, err := s.eng.Step(action)
	if err != nil {
		return nil, err
	}
	s.stepCount++

	reward := round1(data.Reward)
	s.score = round1(s.score + reward)

	img, err := engine.EncodeFrame(data.Frame)
	if err != nil {
		return nil, err
	}

	result := &StepResult{
		Image:           img,
		Episode:         s.episodeNum,
		Reward:          reward,
		Done:            data.Done,
		Score:           s.score,
		LastScore:       s.lastScore,
		EpisodeFinished: data.Done,
		StepCount:       s.stepCount,
		Action:          action.String(),
	}

	if data.Done {
		s.lastScore = s.score
		s.finished = true
	}
	return result, nil
}

// CurrentAction resolves the single action for this tick from the held keys.
// Priority is left > right > throw, with forward as the default; exactly one
// action comes out no matter how many keys are held.
func (s *Session) CurrentAction() engine.Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys["ArrowLeft"]; ok {
		return engine.ActionLeft
	}
	if _, ok := s.keys["ArrowRight"]; ok {
		return engine.ActionRight
	}
	if _, ok := s.keys["Space"]; ok {
		return engine.ActionThrow
	}
	return engine.ActionForward
}

// KeyDown marks a key as held.
func (s *Session) KeyDown(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

// KeyUp releases a held key.
func (s *Session) KeyUp(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

// SetRunning gates whether the tick loop may advance this session.
func (s *Session) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// Activate marks an auto-driven session ready to advance.
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

// CanAdvance reports whether the tick loop should step this session now.
func (s *Session) CanAdvance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.finished || !s.hasObs {
		return false
	}
	if s.mode == config.InputModeAuto && !s.ready {
		return false
	}
	return true
}

// Finished reports whether the current episode reached a terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Episode returns the current episode number.
func (s *Session) Episode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.episodeNum
}

// Snapshot captures the session state for observability. UserID is filled in
// by the registry, which knows the owning user.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Episode:         s.episodeNum,
		Score:           s.score,
		LastScore:       s.lastScore,
		StepCount:       s.stepCount,
		Running:         s.running,
		EpisodeFinished: s.finished,
		CreatedAt:       s.createdAt,
	}
}

// Release invokes the engine's optional close capability and reports whether
// it was present. Called exactly once, by the registry, during retirement.
func (s *Session) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.TryClose(s.eng)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
