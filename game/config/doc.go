// Package config provides configuration for the Fruitbot session server.
//
// Configuration is environment-first: every knob has a FRUITBOT_* variable
// with a sensible default, so the server runs with no configuration at all.
// A .env file is honored when present (loaded by the entrypoint before
// parsing), and network settings can be overridden by CLI flags.
//
// Gameplay tuning:
//
//   - FRUITBOT_TICK_RATE: simulation steps per second (default 15)
//   - FRUITBOT_WARMUP_DELAY: pause before the first driven step (default 3s)
//   - FRUITBOT_IDLE_BACKOFF: re-poll interval for paused sessions (default 100ms)
//   - FRUITBOT_INPUT_MODE: hold, discrete, or auto (default hold)
//   - FRUITBOT_ENGINE_SEED: fixed simulator seed, 0 for clock-seeded
//
// Server tuning:
//
//   - FRUITBOT_HOST / FRUITBOT_PORT: listen address
//   - FRUITBOT_SCORE_DB: SQLite path for the score sink
//   - FRUITBOT_SWEEP_SCHEDULE: cron spec for the idle reaper (default @every 5m)
//   - FRUITBOT_DEBUG: verbose logging
//
// Input modes:
//
// The original deployment shipped near-duplicate app variants that differed
// only in how input drives the loop. InputMode captures that policy in one
// knob: hold (continuous keys), discrete (one step per action event), and
// auto (auto-forward gated by an activation signal).
package config
