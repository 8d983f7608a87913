// Package service provides the business logic layer for the Fruitbot server.
//
// The service package implements:
//   - Game start and connection lifecycle handling
//   - Input routing (held keys, discrete actions)
//   - Episode control (next episode, activation)
//   - Observability queries for the HTTP and MCP surfaces
//   - The idle sweep invoked by the reaper schedule
//
// Architecture:
//
// The service layer sits between the transport layer (WebSocket/HTTP/MCP) and
// the session registry. Transports hand it connection-scoped events; the
// service resolves each connection to its logical player, drives the
// registry's session lifecycle, and starts tick loops. It never touches
// engine state directly.
//
// Input modes:
//
// The configured input mode is a policy knob, not a separate code path. In
// hold mode a game start is exclusive: the player's prior session is replaced
// and other connections are evicted. In discrete and auto modes sessions are
// reused across starts, so several tabs of one player share a frame stream.
// Discrete sessions advance only on explicit send_action events and their
// tick loop stays idle.
package service
