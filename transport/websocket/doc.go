// Package websocket provides the WebSocket gateway of the Fruitbot server.
//
// The websocket package implements:
//   - Connection lifecycle with server-assigned connection IDs
//   - JSON event dispatch from clients to the game service
//   - Per-player frame fan-out (the session.Publisher contract)
//   - Drop-don't-queue overload handling per connection
//   - Eviction of stale connections on exclusive game starts
//
// Message Protocol:
//
// Every message is a JSON envelope {event, data}. Inbound events are
// start_game, key_down, key_up, send_action, next_episode, and activate_game.
// Outbound events are connection_confirmed (sent once on connect, carrying
// the connection ID), game_update (reply to a game start), frame (one per
// simulation step), episode_finished (the terminal frame), and error.
//
// Fan-out:
//
// The hub implements session.Publisher: a step result for a player is sent to
// every connection the registry holds for that player. Sends never block; a
// connection whose buffer is full is dropped entirely, because a stalled
// consumer that silently loses arbitrary frames is worse than one that
// reconnects.
//
// Usage:
//
//	hub := websocket.NewHub(registry, log)
//	svc := service.NewGameService(registry, hub, scores, factory, cfg, log)
//	hub.SetService(svc)
//	mux.HandleFunc("/ws", hub.ServeWS)
//
// Concurrency:
//
// The hub's client map is guarded by a single mutex held only for map and
// channel operations. Each connection owns two goroutines, one reading and
// one writing; the send channel is closed exactly once, by whichever path
// removes the client from the map.
package websocket
