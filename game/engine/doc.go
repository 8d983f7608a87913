// Package engine defines the simulation contract for the Fruitbot server and
// provides the built-in simulator.
//
// The engine package implements:
//   - The Engine interface (Reset / Step / Render) that sessions drive
//   - An explicit optional Closer capability for resource release
//   - The reduced action space (left, forward, right, throw) and its mapping
//     onto raw simulator action values
//   - A deterministic lane-scrolling Fruitbot simulator
//   - JPEG data-URI frame encoding for browser delivery
//
// Contract:
//
// An Engine instance is exclusively owned by one game session and is never
// called concurrently. Step returns the rendered frame, the step reward, and
// whether the episode reached a terminal state. After a terminal step the
// engine must be Reset before play continues.
//
// Release:
//
// Engines that hold external resources implement Closer. Callers release
// engines through TryClose, which tolerates both the absence of the
// capability and release failures.
//
// Usage:
//
//	eng := engine.NewFruitbot(seed)
//	frame, err := eng.Reset()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	data, err := eng.Step(engine.ActionLeft)
//	uri, err := engine.EncodeFrame(data.Frame)
package engine
