package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15"

	"github.com/arcadelab/fruitbot-server/game/service"
	"github.com/arcadelab/fruitbot-server/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     log15.Logger
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, log log15.Logger) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     log,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/scores", s.handleRecentScores).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)

	// Static files (browser client)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth reports liveness plus the load counters monitoring scrapes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.service.Stats(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"active_connections": stats.ActiveConnections,
		"active_games":       stats.ActiveGames,
		"timestamp":          stats.Timestamp,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.service.ListSessions(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["id"]

	snap, err := s.service.GetSession(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRecentScores(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	scores, err := s.service.RecentScores(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to query scores", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to query scores")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(scores),
		"scores": scores,
	})
}
