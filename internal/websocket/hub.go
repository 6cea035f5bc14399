package websocket

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/game"
)

// Hub tracks which clients belong to which room and fans server events out
// to them. It is the game.Notifier the orchestrator announces through.
type Hub struct {
	svc      *game.Service
	orch     *game.Orchestrator
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[string]*Client // room id -> player id -> client
}

func NewHub(svc *game.Service, allowedOrigins []string, log *zap.SugaredLogger) *Hub {
	return &Hub{
		svc: svc,
		log: log.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		rooms: make(map[string]map[string]*Client),
	}
}

// originChecker allows everything when no origins are configured, which is
// what local development runs with.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// BindOrchestrator closes the hub<->orchestrator cycle after both exist.
func (h *Hub) BindOrchestrator(o *game.Orchestrator) {
	h.orch = o
}

// Close drops every live connection; their read loops unwind through the
// normal disconnect path.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for _, c := range room {
			_ = c.Close()
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.RoomId]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[c.RoomId] = room
	}
	if old := room[c.PlayerId]; old != nil && old != c {
		_ = old.Close()
	}
	room[c.PlayerId] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.RoomId]
	if room == nil || room[c.PlayerId] != c {
		return
	}
	delete(room, c.PlayerId)
	if len(room) == 0 {
		delete(h.rooms, c.RoomId)
	}
}

// broadcast sends one event to every client in the room.
func (h *Hub) broadcast(roomId string, msg any) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomId]))
	for _, c := range h.rooms[roomId] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.WriteJSON(msg); err != nil {
			h.log.Debugw("broadcast write failed", "room", roomId, "player", c.PlayerId, "err", err)
		}
	}
}

// unicast sends one event to a single player, if connected.
func (h *Hub) unicast(roomId, playerId string, msg any) {
	h.mu.RLock()
	c := h.rooms[roomId][playerId]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.WriteJSON(msg); err != nil {
		h.log.Debugw("unicast write failed", "room", roomId, "player", playerId, "err", err)
	}
}

func (h *Hub) broadcastRoomUpdate(room *internal.Room) {
	h.broadcast(room.Id, internal.Message[internal.RoomUpdateData]{
		Type: internal.EvtRoomUpdate,
		Data: internal.RoomUpdateData{Room: room},
	})
}

// game.Notifier

func (h *Hub) ImageProgress(room *internal.Room) {
	h.broadcast(room.Id, internal.Message[internal.ImageProgressData]{
		Type: internal.EvtImageProgress,
		Data: internal.ImageProgressData{Game: room.Game},
	})
}

func (h *Hub) PhaseTransition(room *internal.Room, phase internal.GamePhase) {
	h.broadcast(room.Id, internal.Message[internal.PhaseTransitionData]{
		Type: internal.EvtPhaseTransition,
		Data: internal.PhaseTransitionData{Game: room.Game, Phase: phase},
	})
}

// PromptRejected goes only to the submitter; the rest of the room just sees
// generation still in progress.
func (h *Hub) PromptRejected(room *internal.Room, playerId, reason string) {
	h.unicast(room.Id, playerId, internal.Message[internal.PromptRejectedData]{
		Type: internal.EvtPromptRejected,
		Data: internal.PromptRejectedData{PlayerId: playerId, Reason: reason},
	})
}

func (h *Hub) sendError(c *Client, err error, command string) {
	msg := internal.Message[internal.ErrorData]{
		Type: internal.EvtError,
		Data: internal.ErrorData{
			Code:    errorCode(err, command),
			Message: err.Error(),
			Context: command,
		},
	}
	if werr := c.WriteJSON(msg); werr != nil {
		h.log.Debugw("error write failed", "player", c.PlayerId, "err", werr)
	}
}

// errorCode picks the wire code; phase violations carry a per-command code
// so clients can tie the failure to the action they attempted.
func errorCode(err error, command string) string {
	if errors.Is(err, internal.ErrInvalidPhase) {
		if code, ok := phaseFailureCodes[command]; ok {
			return code
		}
	}
	return internal.WireCode(err)
}

var phaseFailureCodes = map[string]string{
	internal.CmdPlayerReady:    "PLAYER_READY_FAILED",
	internal.CmdStartGame:      "START_GAME_FAILED",
	internal.CmdSubmitPrompt:   "SUBMIT_PROMPT_FAILED",
	internal.CmdResubmitPrompt: "RESUBMIT_PROMPT_FAILED",
	internal.CmdSelectImage:    "SELECT_IMAGE_FAILED",
	internal.CmdSubmitGuess:    "SUBMIT_GUESS_FAILED",
	internal.CmdNavigateResult: "NAVIGATE_RESULT_FAILED",
	internal.CmdNextRound:      "NEXT_ROUND_FAILED",
}
