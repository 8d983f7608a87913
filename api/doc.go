// Package api provides the HTTP surface of the Fruitbot server.
//
// The api package implements:
//   - Health reporting with live load counters
//   - Read-only session observability endpoints
//   - Recent-score queries
//   - WebSocket upgrade routing
//   - Static file serving for the browser client
//
// Endpoints:
//
//   - GET /health - status, active_connections, active_games, timestamp
//   - GET /api/sessions - snapshots of every live session
//   - GET /api/sessions/{id} - snapshot of one player's session
//   - GET /api/scores?limit=N - most recent final scores, newest first
//   - GET /ws - WebSocket upgrade (see transport/websocket for the protocol)
//
// All gameplay happens over the WebSocket; the REST surface is observational.
// Errors are returned as JSON {"error": "message"} with a matching HTTP
// status code.
package api
