package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/imagegen"
	"github.com/promptguessr/backend/internal/store"
	"github.com/promptguessr/backend/internal/utils"
)

const codeGenerationAttempts = 10

// Service owns every mutation of room state. Each operation runs inside the
// room's critical section: load from the store, mutate, persist, release.
// Different rooms are fully independent.
type Service struct {
	store store.RoomStore
	gen   imagegen.Generator
	log   *zap.SugaredLogger

	locks sync.Map // room id -> *sync.Mutex
}

func NewService(st store.RoomStore, gen imagegen.Generator, log *zap.SugaredLogger) *Service {
	return &Service{
		store: st,
		gen:   gen,
		log:   log.Named("game"),
	}
}

func (s *Service) lockRoom(roomId string) func() {
	mu, _ := s.locks.LoadOrStore(roomId, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// withRoom runs fn inside the room critical section and persists the result.
// fn returning an error leaves stored state untouched.
func (s *Service) withRoom(ctx context.Context, roomId string, fn func(*internal.Room) error) (*internal.Room, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	room, err := s.store.GetById(ctx, roomId)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, roomId string) (*internal.Room, error) {
	return s.store.GetById(ctx, roomId)
}

func (s *Service) GetRoomByCode(ctx context.Context, code string) (*internal.Room, error) {
	return s.store.GetByCode(ctx, utils.NormalizeRoomCode(code))
}

// CreateRoom creates a lobby with the creator as sole player and host.
func (s *Service) CreateRoom(ctx context.Context, displayName string, settings *internal.Settings) (*internal.Room, string, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, "", fmt.Errorf("%w: display name required", internal.ErrInvalidInput)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, "", err
	}

	cfg := internal.DefaultSettings()
	if settings != nil {
		cfg = *settings
		cfg.ApplyDefaults()
	}

	playerId := utils.NewID()
	host := internal.NewPlayer(playerId, displayName, true)
	room := &internal.Room{
		Id:          utils.NewID(),
		Code:        code,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   playerId,
		Status:      internal.RoomLobby,
		HostId:      playerId,
		Players:     map[string]*internal.Player{playerId: host},
		PlayerOrder: []string{playerId},
		MaxPlayers:  internal.DefaultMaxPlayers,
		Settings:    cfg,
	}

	if err := s.store.Create(ctx, room); err != nil {
		return nil, "", err
	}
	s.log.Infow("room created", "room", room.Id, "code", room.Code, "host", playerId)
	return room, playerId, nil
}

func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenerationAttempts; i++ {
		code := utils.GenerateRoomCode()
		taken, err := s.store.IsCodeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", internal.ErrCodeExhaustion
}

// JoinRoom adds a new player to a lobby looked up by code.
func (s *Service) JoinRoom(ctx context.Context, code, displayName string) (*internal.Room, string, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, "", fmt.Errorf("%w: display name required", internal.ErrInvalidInput)
	}

	// Resolve the code outside the lock; the critical section is keyed by id.
	existing, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, "", err
	}

	playerId := utils.NewID()
	room, err := s.withRoom(ctx, existing.Id, func(r *internal.Room) error {
		if r.Status != internal.RoomLobby {
			return internal.ErrGameInProgress
		}
		if r.IsFull() {
			return internal.ErrRoomFull
		}
		r.Players[playerId] = internal.NewPlayer(playerId, displayName, false)
		r.PlayerOrder = append(r.PlayerOrder, playerId)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	s.log.Infow("player joined", "room", room.Id, "player", playerId)
	return room, playerId, nil
}

// SetReady flips a player's ready flag; only meaningful in the lobby.
func (s *Service) SetReady(ctx context.Context, roomId, playerId string, isReady bool) (*internal.Room, error) {
	return s.withRoom(ctx, roomId, func(r *internal.Room) error {
		p := r.Player(playerId)
		if p == nil {
			return internal.ErrPlayerNotInRoom
		}
		if r.Status != internal.RoomLobby {
			return fmt.Errorf("%w: ready only applies in the lobby", internal.ErrInvalidPhase)
		}
		p.IsReady = isReady
		p.LastSeenAt = time.Now().UTC()
		return nil
	})
}

// RemovePlayer takes a player out of the room. The last player leaving
// deletes the room; a departing host hands off to the earliest joiner.
func (s *Service) RemovePlayer(ctx context.Context, roomId, playerId string) (*internal.Room, string, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	room, err := s.store.GetById(ctx, roomId)
	if err != nil {
		return nil, "", err
	}
	removed := room.Player(playerId)
	if removed == nil {
		return nil, "", internal.ErrPlayerNotInRoom
	}

	delete(room.Players, playerId)
	for i, id := range room.PlayerOrder {
		if id == playerId {
			room.PlayerOrder = append(room.PlayerOrder[:i], room.PlayerOrder[i+1:]...)
			break
		}
	}

	if len(room.Players) == 0 {
		if err := s.store.Delete(ctx, room.Id, room.Code); err != nil {
			return nil, "", err
		}
		s.locks.Delete(roomId)
		s.log.Infow("room emptied and deleted", "room", room.Id)
		return nil, "", nil
	}

	var newHostId string
	if removed.IsHost {
		next := room.OldestPlayer()
		next.IsHost = true
		room.HostId = next.Id
		newHostId = next.Id
		s.log.Infow("host migrated", "room", room.Id, "from", playerId, "to", newHostId)
	}

	if err := s.store.Update(ctx, room); err != nil {
		return nil, "", err
	}
	return room, newHostId, nil
}

// UpdateConnection marks a player (dis)connected without touching their seat.
func (s *Service) UpdateConnection(ctx context.Context, roomId, playerId string, isConnected bool) (*internal.Room, error) {
	return s.withRoom(ctx, roomId, func(r *internal.Room) error {
		p := r.Player(playerId)
		if p == nil {
			return internal.ErrPlayerNotInRoom
		}
		p.IsConnected = isConnected
		p.LastSeenAt = time.Now().UTC()
		return nil
	})
}
