package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// InputMode selects how player input drives the simulation. The modes are
// policy variants of the same session machinery, not separate code paths.
type InputMode string

const (
	// InputModeHold runs the continuous loop: held keys resolve to one action
	// per tick. Starting a game replaces any prior session and evicts stale
	// connections for the same player.
	InputModeHold InputMode = "hold"

	// InputModeDiscrete applies one step per explicit send_action event.
	// Sessions are reused across start_game events.
	InputModeDiscrete InputMode = "discrete"

	// InputModeAuto advances with the forward action on its own, but only
	// after the client sends activate_game.
	InputModeAuto InputMode = "auto"
)

// Config holds server and gameplay tuning, loaded from the environment.
// CLI flags may override the network fields after loading.
type Config struct {
	Host    string `env:"FRUITBOT_HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"FRUITBOT_PORT" envDefault:"8002"`
	ScoreDB string `env:"FRUITBOT_SCORE_DB" envDefault:"scores.db"`
	Debug   bool   `env:"FRUITBOT_DEBUG"`

	// TickRate is the simulation frequency in steps per second.
	TickRate int `env:"FRUITBOT_TICK_RATE" envDefault:"15"`

	// WarmupDelay is how long the loop idles after starting, giving the
	// client time to render the initial frame before motion begins.
	WarmupDelay time.Duration `env:"FRUITBOT_WARMUP_DELAY" envDefault:"3s"`

	// IdleBackoff is the re-poll interval while a session is paused,
	// finished, or has no observation yet.
	IdleBackoff time.Duration `env:"FRUITBOT_IDLE_BACKOFF" envDefault:"100ms"`

	// SweepSchedule is a cron spec for the idle reaper.
	SweepSchedule string `env:"FRUITBOT_SWEEP_SCHEDULE" envDefault:"@every 5m"`

	InputMode InputMode `env:"FRUITBOT_INPUT_MODE" envDefault:"hold"`

	// EngineSeed seeds the built-in simulator. Zero means seed from the
	// clock, giving every session a different level sequence.
	EngineSeed int64 `env:"FRUITBOT_ENGINE_SEED"`
}

// Load parses configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the env parser cannot express.
func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.IdleBackoff <= 0 {
		return fmt.Errorf("idle backoff must be positive, got %s", c.IdleBackoff)
	}
	if c.WarmupDelay < 0 {
		return fmt.Errorf("warmup delay must not be negative, got %s", c.WarmupDelay)
	}
	switch c.InputMode {
	case InputModeHold, InputModeDiscrete, InputModeAuto:
	default:
		return fmt.Errorf("unknown input mode %q", c.InputMode)
	}
	return nil
}

// TickInterval is the nominal period of one simulation step.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}
