package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/config"
	"github.com/promptguessr/backend/internal/game"
	"github.com/promptguessr/backend/internal/store"
	"github.com/promptguessr/backend/internal/websocket"
)

// Server is the HTTP surface: room create/join/lookup plus health probes.
// Gameplay itself happens over the websocket.
type Server struct {
	svc   *game.Service
	hub   *websocket.Hub
	store store.RoomStore
	cfg   *config.Config
	log   *zap.SugaredLogger
}

func New(svc *game.Service, hub *websocket.Hub, st store.RoomStore, cfg *config.Config, log *zap.SugaredLogger) *Server {
	return &Server{svc: svc, hub: hub, store: st, cfg: cfg, log: log.Named("http")}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/rooms/create", s.handleCreateRoom).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/rooms/join", s.handleJoinRoom).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.HandleWebSocket)

	return r
}

type createRoomRequest struct {
	PlayerName string             `json:"playerName"`
	Settings   *internal.Settings `json:"settings,omitempty"`
}

type joinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type roomTicketResponse struct {
	RoomId   string `json:"roomId"`
	RoomCode string `json:"roomCode"`
	PlayerId string `json:"playerId"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, playerId, err := s.svc.CreateRoom(r.Context(), req.PlayerName, req.Settings)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomTicketResponse{
		RoomId:   room.Id,
		RoomCode: room.Code,
		PlayerId: playerId,
	})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, playerId, err := s.svc.JoinRoom(r.Context(), req.RoomCode, req.PlayerName)
	if err != nil {
		// Join failures are client mistakes regardless of kind: wrong code,
		// full room, game already running.
		switch {
		case errors.Is(err, internal.ErrRoomNotFound),
			errors.Is(err, internal.ErrRoomFull),
			errors.Is(err, internal.ErrGameInProgress),
			errors.Is(err, internal.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeServiceError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, roomTicketResponse{
		RoomId:   room.Id,
		RoomCode: room.Code,
		PlayerId: playerId,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	room, err := s.svc.GetRoomByCode(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warnw("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, internal.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, internal.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, internal.ErrRoomFull),
		errors.Is(err, internal.ErrGameInProgress):
		return http.StatusConflict
	case errors.Is(err, internal.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
