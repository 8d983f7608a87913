package engine

import (
	"errors"
	"image"
)

var ErrEngineClosed = errors.New("engine is closed")

// StepData is the outcome of advancing the simulation by one step.
type StepData struct {
	Frame  *image.RGBA
	Reward float64
	Done   bool
}

// Engine is the simulation contract. Implementations own all game state for
// one session; an Engine instance is never shared between sessions and is
// never called concurrently.
type Engine interface {
	// Reset starts a new episode and returns the initial frame.
	Reset() (*image.RGBA, error)

	// Step advances the simulation by one step with the given action.
	Step(action Action) (StepData, error)

	// Render returns the most recently produced frame.
	Render() *image.RGBA
}

// Closer is the optional release capability of an Engine. Engines that hold
// external resources implement it; engines that don't may omit it.
type Closer interface {
	Close() error
}

// TryClose releases the engine if it supports the Close capability. It
// reports whether Close was invoked. Release failures are tolerated: the
// engine is being discarded either way.
func TryClose(e Engine) bool {
	c, ok := e.(Closer)
	if !ok {
		return false
	}
	_ = c.Close()
	return true
}

// Factory builds a fresh engine instance for a new session.
type Factory func() (Engine, error)
