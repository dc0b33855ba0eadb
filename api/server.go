package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/service"
	"github.com/wricardo/mcp-training/battleship/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
	logger    hclog.Logger
}

// NewServer creates a new API server. A nil hub disables the /ws endpoint.
func NewServer(gameService service.GameService, hub *websocket.Hub, staticDir string, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		service:   gameService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: staticDir,
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")

	// Sessions (read only; games are played over the WebSocket)
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")

	// Matchmaking
	api.HandleFunc("/queue", s.handleQueueStatus).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests is a mux middleware that logs every request at debug level
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)
	status := http.StatusBadRequest
	switch code {
	case service.CodeSessionNotFound:
		status = http.StatusNotFound
	case service.CodeInternal:
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}

// Session Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]engine.Summary, 0, len(sessions))
		for _, sess := range sessions {
			if string(sess.Status) == status {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}
	if sessions == nil {
		sessions = []engine.Summary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	summary, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleGetState returns the spectator view: both grids with ships hidden
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondError(w, err)
		return
	}
	view, err := s.service.State(r.Context(), sessionID, "")
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.QueueStatus(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, engine.DefaultRules())
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, _ := s.service.ListSessions(r.Context())
	resp := map[string]interface{}{
		"status":   "healthy",
		"sessions": len(sessions),
	}
	if s.hub != nil {
		resp["clients"] = s.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, resp)
}
