package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/promptguessr/backend/internal"
)

// Memory is a RoomStore for tests and local development without Redis.
// Rooms pass through the same JSON serialization as the Redis adapter so
// both stores exercise the identical wire contract, and callers never share
// pointers with stored state.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string][]byte // id -> serialized room
	codes map[string]string // code -> id
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string][]byte),
		codes: make(map[string]string),
	}
}

func (s *Memory) Create(_ context.Context, room *internal.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room.Id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Id] = data
	s.codes[room.Code] = room.Id
	return nil
}

func (s *Memory) GetById(_ context.Context, id string) (*internal.Room, error) {
	s.mu.RLock()
	data, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id %s", internal.ErrRoomNotFound, id)
	}

	var room internal.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("unmarshal room %s: %w", id, err)
	}
	return &room, nil
}

func (s *Memory) GetByCode(ctx context.Context, code string) (*internal.Room, error) {
	s.mu.RLock()
	id, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: code %s", internal.ErrRoomNotFound, code)
	}
	return s.GetById(ctx, id)
}

func (s *Memory) Update(_ context.Context, room *internal.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room.Id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Id]; !ok {
		return fmt.Errorf("%w: id %s", internal.ErrRoomNotFound, room.Id)
	}
	s.rooms[room.Id] = data
	return nil
}

func (s *Memory) Delete(_ context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	delete(s.codes, code)
	return nil
}

func (s *Memory) IsCodeTaken(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[code]
	return ok, nil
}

func (s *Memory) Ping(context.Context) error { return nil }
