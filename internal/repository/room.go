package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

var ErrRoomNotFound = errors.New("room not found")

const roomKeyPrefix = "room:"

// RoomRepository mirrors live room snapshots into redis. The in-memory
// registry stays authoritative; this mirror only feeds the read-only
// status surface.
type RoomRepository interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*entity.Room, error)
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func (that *dbRoom) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	roomKey := roomKeyPrefix + room.ID
	if err = that.client.Set(ctx, roomKey, roomJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	roomKey := roomKeyPrefix + id

	response, err := that.client.Get(ctx, roomKey).Result()

	if errors.Is(err, redis.Nil) {
		return &entity.Room{}, ErrRoomNotFound
	}

	if err != nil {
		return &entity.Room{}, fmt.Errorf("failed to get room by id: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return &entity.Room{}, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	roomKey := roomKeyPrefix + id

	deleted, err := that.client.Del(ctx, roomKey).Result()
	if err != nil {
		return fmt.Errorf("failed to delete room by id: %w", err)
	}

	if deleted == 0 {
		return ErrRoomNotFound
	}

	return nil
}

func (that *dbRoom) ListActive(ctx context.Context) ([]*entity.Room, error) {
	keys, err := that.client.Keys(ctx, roomKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room keys: %w", err)
	}

	rooms := make([]*entity.Room, 0, len(keys))

	for _, key := range keys {
		response, err := that.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// the room was deleted between Keys and Get
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get room %q: %w", key, err)
		}

		var room entity.Room
		if err = json.Unmarshal([]byte(response), &room); err != nil {
			return nil, fmt.Errorf("failed to unmarshal room %q: %w", key, err)
		}

		rooms = append(rooms, &room)
	}

	return rooms, nil
}
