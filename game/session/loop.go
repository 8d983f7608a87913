package session

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/arcadelab/fruitbot-server/game/score"
)

// Publisher delivers step results to every connection bound to a user.
// Implementations must be best-effort and non-blocking: a slow consumer must
// not stall the tick loop.
type Publisher interface {
	Publish(userID string, result *StepResult)
}

// LoopConfig tunes the tick loop cadence.
type LoopConfig struct {
	// TickInterval is the nominal period between steps.
	TickInterval time.Duration

	// WarmupDelay is how long after start the loop idles before the first
	// driven step, giving the client time to render the initial frame.
	WarmupDelay time.Duration

	// IdleBackoff is the re-poll interval while the session is paused,
	// finished, or missing an observation.
	IdleBackoff time.Duration
}

// DefaultLoopConfig matches the reference cadence: 15 Hz with a 3 second
// warm-up and 100 ms idle re-poll.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickInterval: time.Second / 15,
		WarmupDelay:  3 * time.Second,
		IdleBackoff:  100 * time.Millisecond,
	}
}

// TickLoop drives one user's session at a fixed cadence: resolve the held
// input to an action, step the engine, publish the result. One loop exists
// per active user; the registry owns its lifecycle.
type TickLoop struct {
	userID string
	reg    *Registry
	pub    Publisher
	scores score.Sink
	cfg    LoopConfig
	log    log15.Logger
}

// NewTickLoop builds a loop for one user. scores may be nil to disable
// persistence.
func NewTickLoop(userID string, reg *Registry, pub Publisher, scores score.Sink, cfg LoopConfig, log log15.Logger) *TickLoop {
	return &TickLoop{
		userID: userID,
		reg:    reg,
		pub:    pub,
		scores: scores,
		cfg:    cfg,
		log:    log,
	}
}

// Run executes the loop until the context is canceled, the session vanishes
// from the registry, or the engine fails. On engine failure the error is
// returned so the registry retires the session; cancellation and session
// removal are normal exits.
//
// When an episode finishes the loop publishes the final result and keeps
// polling in the paused state until an explicit next_episode or start_game
// resumes it. Overruns are absorbed by dropping the frame debt: the loop
// never queues catch-up steps.
func (l *TickLoop) Run(ctx context.Context) error {
	l.log.Debug("tick loop started", "user", l.userID)
	defer l.log.Debug("tick loop ended", "user", l.userID)

	started := time.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}
		iterStart := time.Now()

		sess, ok := l.reg.Session(l.userID)
		if !ok {
			return nil
		}

		if !sess.CanAdvance() || time.Since(started) < l.cfg.WarmupDelay {
			if !sleepCtx(ctx, l.cfg.IdleBackoff) {
				return nil
			}
			continue
		}

		result, err := sess.Step(sess.CurrentAction())
		if err != nil {
			return fmt.Errorf("step for user %s: %w", l.userID, err)
		}
		if result != nil {
			if result.EpisodeFinished {
				l.recordScore(result)
			}
			l.pub.Publish(l.userID, result)
			l.log.Debug("tick", "user", l.userID, "action", result.Action,
				"step", result.StepCount, "reward", result.Reward, "done", result.Done)
		}

		if elapsed := time.Since(iterStart); elapsed < l.cfg.TickInterval {
			if !sleepCtx(ctx, l.cfg.TickInterval-elapsed) {
				return nil
			}
		} else {
			runtime.Gosched()
		}
	}
}

// recordScore appends the final episode score to the sink. Failures are
// logged and swallowed; persistence never blocks frame delivery.
func (l *TickLoop) recordScore(result *StepResult) {
	if l.scores == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.scores.Record(ctx, l.userID, time.Now(), result.Score); err != nil {
		l.log.Warn("failed to record final score", "user", l.userID, "err", err)
		return
	}
	l.log.Info("recorded final score", "user", l.userID, "score", result.Score)
}

// sleepCtx sleeps for d, returning false if the context was canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
