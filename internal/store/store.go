package store

import (
	"context"

	"github.com/promptguessr/backend/internal"
)

// RoomStore persists the full Room tree keyed by id with a secondary index
// by code. Implementations fail with internal.ErrRoomNotFound when a
// referenced key is absent and internal.ErrStoreUnavailable otherwise.
type RoomStore interface {
	Create(ctx context.Context, room *internal.Room) error
	GetById(ctx context.Context, id string) (*internal.Room, error)
	GetByCode(ctx context.Context, code string) (*internal.Room, error)
	Update(ctx context.Context, room *internal.Room) error
	Delete(ctx context.Context, id, code string) error
	IsCodeTaken(ctx context.Context, code string) (bool, error)
	Ping(ctx context.Context) error
}
