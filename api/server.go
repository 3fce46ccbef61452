package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/roomsync/game/room"
	"github.com/wricardo/mcp-training/roomsync/game/service"
)

// WebSocketHandler upgrades and serves a websocket connection.
type WebSocketHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Options configures the API server
type Options struct {
	AllowedOrigins []string
	Version        string
}

// Server represents the REST API server
type Server struct {
	service service.RoomService
	ws      WebSocketHandler
	router  *mux.Router
	handler http.Handler
	logger  *slog.Logger
	version string
}

// NewServer creates a new API server
func NewServer(roomService service.RoomService, ws WebSocketHandler, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		service: roomService,
		ws:      ws,
		router:  mux.NewRouter(),
		logger:  logger.With("component", "api"),
		version: opts.Version,
	}
	s.setupRoutes()

	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})(s.router)

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Room routes. Registered on the root router so a wrong method is a 405.
	s.router.Handle("/api/rooms", s.logged(s.handleListRooms)).Methods(http.MethodGet)
	s.router.Handle("/api/rooms/{id}", s.logged(s.handleGetRoom)).Methods(http.MethodGet)
	s.router.Handle("/api/stats", s.logged(s.handleStats)).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// WebSocket. Browser clients connect to the bare host, so "/" upgrades too.
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/", s.handleRoot)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
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

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"count": len(rooms),
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	detail, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, "Room not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// WebSocket Handlers

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		respondError(w, http.StatusBadRequest, "websocket upgrade required")
		return
	}
	s.ws.ServeWS(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.ws.ServeWS(w, r)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"service":   "roomsync",
		"version":   s.version,
		"websocket": "/ws",
		"rooms":     "/api/rooms",
		"stats":     "/api/stats",
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
