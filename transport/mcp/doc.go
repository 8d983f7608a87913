// Package mcp provides Model Context Protocol integration for the Fruitbot
// server.
//
// The mcp package implements:
//   - A thin MCP client that proxies every tool call to the REST API
//   - Read-only tool definitions for session and score observability
//   - An MCP server instance suitable for mounting over HTTP
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - list_sessions: List every live game session
//   - get_session: Get one player's session details
//   - server_stats: Get connection and game load counters
//   - recent_scores: Get recently recorded final scores
//   - game_overview: Explain the game and the server's behavior
//
// Design:
//
// The client holds no game state. Each tool call becomes an HTTP request to
// the REST API, so the MCP surface stays consistent with what /api reports
// and never touches the session registry directly. Gameplay itself is
// WebSocket-only; MCP tools observe, they do not play.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	response := client.GetMCPServer().HandleMessage(ctx, requestBody)
package mcp
