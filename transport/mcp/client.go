package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arcadelab/fruitbot-server/game/score"
	"github.com/arcadelab/fruitbot-server/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Fruitbot Arcade Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Fruitbot Arcade Server - MCP Interface

This is a thin client that proxies all requests to the REST API server.

ABOUT THE GAME:
Fruitbot is a real-time arcade game where each player steers a robot that
catches fruit and dodges junk. Players connect over WebSocket; the server
runs one simulation per player and streams rendered frames at the tick rate.

This MCP surface is read-only. Gameplay happens over the WebSocket protocol;
these tools observe the server, they never play for anyone.

AVAILABLE TOOLS:
- list_sessions: List every live game session
- get_session: Get one player's session details
- server_stats: Get connection and game counters
- recent_scores: Get recently recorded final scores
- game_overview: Explain the game and the server's behavior`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live game sessions with episode, score, and run state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of one player's session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_name": map[string]interface{}{
					"type":        "string",
					"description": "Player name whose session to retrieve",
				},
			},
			Required: []string{"player_name"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get server health with active connection and game counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "recent_scores",
		Description: "Get recently recorded final scores, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of scores to return (optional)",
				},
			},
		},
	}, c.handleRecentScores)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_overview",
		Description: "Get an overview of the game and how the server runs it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameOverview)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                `json:"count"`
		Sessions []session.Snapshot `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, snap := range response.Sessions {
		result += fmt.Sprintf("- %s\n", formatSessionLine(&snap))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	playerName, _ := args["player_name"].(string)

	var snap session.Snapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", playerName), nil, &snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatSnapshot(&snap)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health struct {
		Status            string `json:"status"`
		ActiveConnections int    `json:"active_connections"`
		ActiveGames       int    `json:"active_games"`
		Timestamp         string `json:"timestamp"`
	}

	err := c.apiCall("GET", "/health", nil, &health)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Status: %s\nConnections: %d\nActive games: %d\nAs of: %s\n",
		health.Status, health.ActiveConnections, health.ActiveGames, health.Timestamp)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRecentScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/scores"
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if limit, ok := args["limit"].(float64); ok {
			path += fmt.Sprintf("?limit=%d", int(limit))
		}
	}

	var response struct {
		Count  int           `json:"count"`
		Scores []score.Entry `json:"scores"`
	}

	err := c.apiCall("GET", path, nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatScores(response.Scores)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameOverview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overview := `Fruitbot Arcade Server - Overview

THE GAME:
Fruitbot is a side-scrolling arcade game. The player steers a robot along the
bottom of the screen, catching fruit for points and dodging junk that costs
points. An episode ends when the level scrolls out or the robot is eliminated.

HOW THE SERVER RUNS IT:
- Each player gets at most one simulation, no matter how many browser tabs
  they have open. Frames fan out to every tab.
- A tick loop advances the simulation at a fixed rate and streams rendered
  frames over the WebSocket.
- When an episode finishes the final score is recorded and the loop pauses
  until the player asks for the next episode.
- Sessions with no remaining connections are retired and their simulations
  shut down.

CONTROLS (over WebSocket, not MCP):
- Arrow keys steer the robot; left wins when both are held.
- start_game begins or replaces a run, next_episode starts a fresh episode.

WHAT MCP CAN SEE:
- list_sessions / get_session: who is playing and how their run is going
- server_stats: load counters for monitoring
- recent_scores: the final-score history

The MCP surface is observational. It cannot press keys or start games.`

	return mcp.NewToolResultText(overview), nil
}

// Formatting helpers

func formatSessionLine(snap *session.Snapshot) string {
	state := "paused"
	if snap.Running {
		state = "running"
	}
	if snap.EpisodeFinished {
		state = "finished"
	}
	return fmt.Sprintf("%s (Episode: %d, Score: %.1f, Steps: %d, %s)",
		snap.UserID, snap.Episode, snap.Score, snap.StepCount, state)
}

func formatSnapshot(snap *session.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Player: %s\n", snap.UserID))
	b.WriteString(fmt.Sprintf("Episode: %d\n", snap.Episode))
	b.WriteString(fmt.Sprintf("Score: %.1f\n", snap.Score))
	b.WriteString(fmt.Sprintf("Last episode score: %.1f\n", snap.LastScore))
	b.WriteString(fmt.Sprintf("Steps this episode: %d\n", snap.StepCount))
	b.WriteString(fmt.Sprintf("Running: %v\n", snap.Running))
	if snap.EpisodeFinished {
		b.WriteString("Episode finished, waiting for next_episode\n")
	}
	b.WriteString(fmt.Sprintf("Started: %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}

func formatScores(entries []score.Entry) string {
	if len(entries) == 0 {
		return "No scores recorded yet."
	}

	result := fmt.Sprintf("Recent Scores (%d):\n\n", len(entries))
	for i, e := range entries {
		result += fmt.Sprintf("%d. %s scored %.1f at %s\n", i+1, e.UserID, e.Score, e.RecordedAt)
	}
	return result
}
