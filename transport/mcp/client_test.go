package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/arcadelab/fruitbot-server/game/score"
	"github.com/arcadelab/fruitbot-server/game/session"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	expectedResponse := map[string]interface{}{
		"status":             "healthy",
		"active_connections": 3,
		"active_games":       2,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	err := client.apiCall("GET", "/health", nil, &response)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["status"] != expectedResponse["status"] {
		t.Errorf("Expected status %v, got %v", expectedResponse["status"], response["status"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall("GET", "/health", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall("GET", "/health", nil, nil)
	if err == nil {
		t.Error("Expected error for HTTP 500 response")
	}

	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_apiCall_JSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no session for player"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall("GET", "/api/sessions/nobody", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 404 response")
	}

	if err.Error() != "no session for player" {
		t.Errorf("Expected the API's error message, got: %v", err)
	}
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result with content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestClient_handleListSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected GET /api/sessions, got %s %s", r.Method, r.URL.Path)
		}

		resp := map[string]interface{}{
			"count": 2,
			"sessions": []session.Snapshot{
				{UserID: "alice", Episode: 3, Score: 12.5, StepCount: 40, Running: true},
				{UserID: "bob", Episode: 1, Score: 2, EpisodeFinished: true},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleListSessions(context.Background(), toolRequest("list_sessions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleListSessions failed: %v", err)
	}

	text := textOf(t, result)
	for _, want := range []string{"Live Sessions (2)", "alice", "Episode: 3", "running", "bob", "finished"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_handleGetSession(t *testing.T) {
	created := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/alice" {
			t.Errorf("Expected /api/sessions/alice, got %s", r.URL.Path)
		}

		resp := session.Snapshot{
			UserID:    "alice",
			Episode:   2,
			Score:     7.5,
			LastScore: 4,
			StepCount: 18,
			Running:   true,
			CreatedAt: created,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleGetSession(context.Background(),
		toolRequest("get_session", map[string]interface{}{"player_name": "alice"}))
	if err != nil {
		t.Fatalf("handleGetSession failed: %v", err)
	}

	text := textOf(t, result)
	for _, want := range []string{"Player: alice", "Episode: 2", "Score: 7.5", "Last episode score: 4.0", "2026-08-31 10:30:00"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_handleGetSession_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no session for player"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleGetSession(context.Background(),
		toolRequest("get_session", map[string]interface{}{"player_name": "nobody"}))
	if err != nil {
		t.Fatalf("handleGetSession returned error: %v", err)
	}

	if result == nil || !result.IsError {
		t.Fatal("Expected an error result for unknown player")
	}
}

func TestClient_handleServerStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Expected /health, got %s", r.URL.Path)
		}

		resp := map[string]interface{}{
			"status":             "healthy",
			"active_connections": 4,
			"active_games":       3,
			"timestamp":          "2026-08-31T12:00:00Z",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleServerStats(context.Background(), toolRequest("server_stats", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleServerStats failed: %v", err)
	}

	text := textOf(t, result)
	for _, want := range []string{"Status: healthy", "Connections: 4", "Active games: 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_handleRecentScores(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()

		resp := map[string]interface{}{
			"count": 2,
			"scores": []score.Entry{
				{UserID: "alice", RecordedAt: "2026-08-31 12:00:00", Score: 12.5},
				{UserID: "bob", RecordedAt: "2026-08-31 11:59:00", Score: 7},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleRecentScores(context.Background(),
		toolRequest("recent_scores", map[string]interface{}{"limit": float64(5)}))
	if err != nil {
		t.Fatalf("handleRecentScores failed: %v", err)
	}

	if gotPath != "/api/scores?limit=5" {
		t.Errorf("Expected limit forwarded in query, got path %s", gotPath)
	}

	text := textOf(t, result)
	for _, want := range []string{"Recent Scores (2)", "alice scored 12.5", "bob scored 7.0"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_handleGameOverview(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameOverview(context.Background(), toolRequest("game_overview", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameOverview failed: %v", err)
	}

	text := textOf(t, result)
	expectedContent := []string{
		"Fruitbot Arcade Server - Overview",
		"THE GAME:",
		"HOW THE SERVER RUNS IT:",
		"at most one simulation",
		"WHAT MCP CAN SEE:",
	}

	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected %q in overview, got: %s", content, text)
		}
	}
}

func TestFormatSessionLine(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want string
	}{
		{
			name: "running",
			snap: session.Snapshot{UserID: "alice", Episode: 2, Score: 3.5, StepCount: 10, Running: true},
			want: "alice (Episode: 2, Score: 3.5, Steps: 10, running)",
		},
		{
			name: "paused",
			snap: session.Snapshot{UserID: "bob", Episode: 1},
			want: "bob (Episode: 1, Score: 0.0, Steps: 0, paused)",
		},
		{
			name: "finished wins over running",
			snap: session.Snapshot{UserID: "cara", Episode: 4, Running: true, EpisodeFinished: true},
			want: "cara (Episode: 4, Score: 0.0, Steps: 0, finished)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSessionLine(&tt.snap); got != tt.want {
				t.Errorf("formatSessionLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatScores_Empty(t *testing.T) {
	if got := formatScores(nil); got != "No scores recorded yet." {
		t.Errorf("formatScores(nil) = %q", got)
	}
}
