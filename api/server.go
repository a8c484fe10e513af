package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/wricardo/collab-board/board/config"
	"github.com/wricardo/collab-board/board/room"
	"github.com/wricardo/collab-board/board/session"
	"github.com/wricardo/collab-board/board/store"
	"github.com/wricardo/collab-board/transport/websocket"
)

// BoardService is the read and create surface the REST API needs.
// session.Handler implements it.
type BoardService interface {
	ListRooms() []room.Summary
	Room(id string) (room.View, error)
	ChatHistory(id string, limit int) ([]room.ChatMessage, error)
	CreateRoom(req session.CreateRoomRequest) (room.View, error)
	Stats() session.Stats
}

// ProfileSource lists the settings profiles the server can start with.
// config.Manager implements it.
type ProfileSource interface {
	ListProfiles() ([]*config.ProfileInfo, error)
	RefreshCache() error
}

// Options configures optional parts of the server.
type Options struct {
	// AllowedOrigins for CORS. Empty allows every origin.
	AllowedOrigins []string

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// Profiles backs /api/profiles when set.
	Profiles ProfileSource

	Logger *slog.Logger
}

// Server represents the REST API server
type Server struct {
	service BoardService
	hub     *websocket.Hub
	router  *mux.Router
	handler  http.Handler
	metrics  http.Handler
	profiles ProfileSource
	log      *slog.Logger
}

// NewServer creates a new API server
func NewServer(svc BoardService, hub *websocket.Hub, opts Options) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		router:  mux.NewRouter(),
		metrics:  opts.Metrics,
		profiles: opts.Profiles,
		log:      opts.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(s.router)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Routes live on the root router so a method mismatch answers 405.
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Rooms
	s.router.HandleFunc("/api/rooms", s.handleListRooms).Methods("GET")
	s.router.HandleFunc("/api/rooms", s.handleCreateRoom).Methods("POST")
	s.router.HandleFunc("/api/rooms/{id}", s.handleGetRoom).Methods("GET")
	s.router.HandleFunc("/api/rooms/{id}/history", s.handleGetHistory).Methods("GET")

	// Settings profiles
	if s.profiles != nil {
		s.router.HandleFunc("/api/profiles", s.handleListProfiles).Methods("GET")
		s.router.HandleFunc("/api/profiles/refresh", s.handleRefreshProfiles).Methods("POST")
	}

	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
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
	rooms := s.service.ListRooms()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRoomRequest

	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	view, err := s.service.CreateRoom(req)
	if err != nil {
		s.log.Error("api.create_room_failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not create room")
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	view, err := s.service.Room(roomID)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	messages, err := s.service.ChatHistory(roomID, limit)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roomId":   roomID,
		"count":    len(messages),
		"messages": messages,
	})
}

// Profile Handlers

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.ListProfiles()
	if err != nil {
		s.log.Error("api.list_profiles_failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not list profiles")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(profiles),
		"profiles": profiles,
	})
}

// handleRefreshProfiles drops cached profiles so edited files are re-read.
// The running server keeps the settings it started with.
func (s *Server) handleRefreshProfiles(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.RefreshCache(); err != nil {
		s.log.Error("api.refresh_profiles_failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.handleListProfiles(w, r)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Stats())
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRoomNotFound) {
		respondError(w, http.StatusNotFound, session.MsgRoomNotFound)
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
