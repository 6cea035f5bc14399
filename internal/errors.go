package internal

import (
	"errors"
)

// Error kinds shared by every layer. The service returns these wrapped with
// context; the gateway translates them into error events, the HTTP surface
// into status codes.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrCodeExhaustion   = errors.New("could not generate a unique room code")
	ErrPlayerNotInRoom  = errors.New("player not in room")
	ErrNotHost          = errors.New("player is not the host")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrPlayersNotReady  = errors.New("not all players are ready")
	ErrInvalidPhase     = errors.New("invalid phase for action")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// WireCode maps an error to the code carried on error events.
func WireCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, ErrGameInProgress):
		return "GAME_IN_PROGRESS"
	case errors.Is(err, ErrCodeExhaustion):
		return "CODE_EXHAUSTION"
	case errors.Is(err, ErrPlayerNotInRoom):
		return "PLAYER_NOT_IN_ROOM"
	case errors.Is(err, ErrNotHost):
		return "NOT_HOST"
	case errors.Is(err, ErrNotEnoughPlayers):
		return "NOT_ENOUGH_PLAYERS"
	case errors.Is(err, ErrPlayersNotReady):
		return "PLAYERS_NOT_READY"
	case errors.Is(err, ErrInvalidPhase):
		return "INVALID_PHASE"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
