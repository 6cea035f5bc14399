package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
)

const (
	roomKeyPrefix  = "room:"
	codeKeyPrefix  = "room:code:"
	activeRoomsKey = "active_rooms"
)

// Redis persists rooms as JSON under room:{id}, indexed by room:code:{code},
// with live room ids tracked in the active_rooms set. Every key carries the
// room TTL; updates preserve the TTL already on the key.
type Redis struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

func NewRedis(client *redis.Client, log *zap.SugaredLogger) *Redis {
	return &Redis{client: client, log: log.Named("store")}
}

func roomKey(id string) string   { return roomKeyPrefix + id }
func codeKey(code string) string { return codeKeyPrefix + code }

func (s *Redis) Create(ctx context.Context, room *internal.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room.Id, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKey(room.Id), data, internal.RoomTTL)
	pipe.Set(ctx, codeKey(room.Code), room.Id, internal.RoomTTL)
	pipe.SAdd(ctx, activeRoomsKey, room.Id)
	pipe.Expire(ctx, activeRoomsKey, internal.RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: create room %s: %v", internal.ErrStoreUnavailable, room.Id, err)
	}
	s.log.Debugw("room created", "room", room.Id, "code", room.Code)
	return nil
}

func (s *Redis) GetById(ctx context.Context, id string) (*internal.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: id %s", internal.ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get room %s: %v", internal.ErrStoreUnavailable, id, err)
	}

	var room internal.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("unmarshal room %s: %w", id, err)
	}
	return &room, nil
}

func (s *Redis) GetByCode(ctx context.Context, code string) (*internal.Room, error) {
	id, err := s.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: code %s", internal.ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get code %s: %v", internal.ErrStoreUnavailable, code, err)
	}
	return s.GetById(ctx, id)
}

// Update rewrites an existing room, preserving whatever TTL is left on its
// keys. A room whose key has already expired is reported as not found.
func (s *Redis) Update(ctx context.Context, room *internal.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room.Id, err)
	}

	ok, err := s.client.SetXX(ctx, roomKey(room.Id), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: update room %s: %v", internal.ErrStoreUnavailable, room.Id, err)
	}
	if !ok {
		return fmt.Errorf("%w: id %s", internal.ErrRoomNotFound, room.Id)
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, id, code string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.Del(ctx, codeKey(code))
	pipe.SRem(ctx, activeRoomsKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: delete room %s: %v", internal.ErrStoreUnavailable, id, err)
	}
	s.log.Debugw("room deleted", "room", id, "code", code)
	return nil
}

func (s *Redis) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, codeKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists code %s: %v", internal.ErrStoreUnavailable, code, err)
	}
	return n > 0, nil
}

func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", internal.ErrStoreUnavailable, err)
	}
	return nil
}
