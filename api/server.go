package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/resource"
	"github.com/wricardo/racelobby/game/service"
	"github.com/wricardo/racelobby/game/session"
	"github.com/wricardo/racelobby/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.LobbyService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case /ws
// answers 503.
func NewServer(lobbyService service.LobbyService, hub *websocket.Hub) *Server {
	s := &Server{
		service: lobbyService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Lobbies
	api.HandleFunc("/lobbies", s.handleListLobbies).Methods("GET")
	api.HandleFunc("/lobbies", s.handleCreateLobby).Methods("POST")
	api.HandleFunc("/lobbies/{id}", s.handleGetLobby).Methods("GET")
	api.HandleFunc("/lobbies/{id}", s.handleDeleteLobby).Methods("DELETE")
	api.HandleFunc("/lobbies/{id}/messages", s.handleSendMessage).Methods("POST")
	api.HandleFunc("/lobbies/{id}/force-map-pick", s.handleForceMapPick).Methods("POST")

	// Sessions
	api.HandleFunc("/sessions/{id}/lobby", s.handleGetSessionLobby).Methods("GET")
	api.HandleFunc("/sessions/{id}/lobby", s.handleKickSession).Methods("DELETE")

	// Resources and rounds
	api.HandleFunc("/resources", s.handleListResources).Methods("GET")
	api.HandleFunc("/resources/{id}/results", s.handleReportResults).Methods("POST")

	// Levels
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels/override", s.handleSetOverride).Methods("PUT")
	api.HandleFunc("/levels/{name}", s.handleGetLevel).Methods("GET")
	api.HandleFunc("/levels/{name}", s.handleSaveLevel).Methods("PUT")

	// Server
	api.HandleFunc("/dashboard", s.handleDashboard).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
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

// respondServiceError maps service and registry errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrLobbyNotFound),
		errors.Is(err, session.ErrNotInLobby),
		errors.Is(err, config.ErrLevelNotFound),
		errors.Is(err, gameplay.ErrNoRound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrLobbyNotEmpty),
		errors.Is(err, session.ErrNameCollision),
		errors.Is(err, gameplay.ErrRoundFinished):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, config.ErrInvalidLevel),
		errors.Is(err, session.ErrNoRecipients),
		errors.Is(err, gameplay.ErrUnknownRacer),
		errors.Is(err, gameplay.ErrBadPlace):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// Lobby Handlers

func (s *Server) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	lobbies, err := s.service.ListLobbies(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Optional state filter
	if state := r.URL.Query().Get("state"); state != "" {
		filtered := make([]*service.LobbyInfo, 0, len(lobbies))
		for _, l := range lobbies {
			if strings.EqualFold(string(l.State), state) {
				filtered = append(filtered, l)
			}
		}
		lobbies = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lobbies": lobbies,
		"count":   len(lobbies),
	})
}

func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.CreateLobby(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetLobby(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteLobby(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLobby(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req service.MessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SendMessage(r.Context(), mux.Vars(r)["id"], &req); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleForceMapPick(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.ForceMapPick(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":   "map pick requested",
		"lobby_id": id,
	})
}

// Session Handlers

func (s *Server) handleGetSessionLobby(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSessionLobby(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleKickSession(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if err := s.service.KickSession(r.Context(), mux.Vars(r)["id"], reason); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resource Handlers

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.service.ListResources(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"resources": resources,
		"count":     len(resources),
	})
}

func (s *Server) handleReportResults(w http.ResponseWriter, r *http.Request) {
	var req service.ResultsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	round, err := s.service.ReportResults(r.Context(), resource.ID(mux.Vars(r)["id"]), req.Results)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, round)
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"levels": levels,
		"count":  len(levels),
	})
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := s.service.GetLevel(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

func (s *Server) handleSaveLevel(w http.ResponseWriter, r *http.Request) {
	var level config.Level
	if err := decodeBody(r, &level); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := mux.Vars(r)["name"]
	if err := s.service.SaveLevel(r.Context(), name, &level); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"message":  "Level saved successfully",
		"level_id": name,
	})
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req service.OverrideRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SetLevelOverride(r.Context(), req.Level); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"override": req.Level})
}

// Server Handlers

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.service.GetDashboard(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dash.Text))
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket transport disabled", http.StatusServiceUnavailable)
		return
	}
	s.hub.ServeWS(w, r)
}
