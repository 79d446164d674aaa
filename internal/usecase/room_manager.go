package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/tictactoe"
)

const mirrorTimeout = 2 * time.Second

type roomMirror interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	DeleteByID(ctx context.Context, id string) error
}

// Departure is the outcome of removing one connection from one room.
type Departure struct {
	Room      *entity.Room
	Remaining []string
	Deleted   bool
}

// RoomManager owns every live room. The mutex is scoped to each operation
// and is never held across a transport send; operations hand out deep
// copies so callers broadcast from a stable snapshot.
type RoomManager struct {
	logger *slog.Logger
	mirror roomMirror

	mu    sync.Mutex
	rooms map[string]*entity.Room
}

func NewRoomManager(logger *slog.Logger, mirror roomMirror) *RoomManager {
	return &RoomManager{
		logger: logger,
		mirror: mirror,
		rooms:  make(map[string]*entity.Room),
	}
}

// CreateRoom registers a room under the client-supplied id with the
// requester as player X.
func (that *RoomManager) CreateRoom(roomID, connectionID string) (*entity.Room, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, apperror.ErrEmptyRoomID
	}

	that.mu.Lock()

	if _, ok := that.rooms[roomID]; ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomAlreadyExists, roomID)
	}

	room := entity.NewRoom(roomID, connectionID)
	that.rooms[roomID] = room
	snapshot := room.Clone()

	that.mu.Unlock()

	that.logger.Info("room created", "roomID", roomID, "connectionID", connectionID)
	that.mirrorUpdate(snapshot)

	return snapshot, nil
}

// JoinRoom adds the requester to an existing room with the free mark and
// starts the game. Joining a room the connection is already in returns the
// current state unchanged.
func (that *RoomManager) JoinRoom(roomID, connectionID string) (*entity.Room, error) {
	that.mu.Lock()

	room, ok := that.rooms[roomID]
	if !ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	if room.MemberByConnection(connectionID) != nil {
		snapshot := room.Clone()
		that.mu.Unlock()
		return snapshot, nil
	}

	if room.IsFull() {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomFull, roomID)
	}

	room.Members = append(room.Members, &entity.Member{
		ConnectionID: connectionID,
		Mark:         room.FreeMark(),
	})

	// a finished room never goes back in play
	if room.IsWaiting() {
		room.Status = entity.StatusOngoing
	}
	snapshot := room.Clone()

	that.mu.Unlock()

	that.logger.Info("room joined", "roomID", roomID, "connectionID", connectionID)
	that.mirrorUpdate(snapshot)

	return snapshot, nil
}

// MakeTurn applies one move. A rejected move returns the reason and leaves
// the room untouched; the caller decides whether the reason goes anywhere.
func (that *RoomManager) MakeTurn(roomID, connectionID, mark string, cell int) (*entity.Room, error) {
	that.mu.Lock()

	room, ok := that.rooms[roomID]
	if !ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	if err := tictactoe.MakeTurn(room, connectionID, mark, cell); err != nil {
		that.mu.Unlock()
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	snapshot := room.Clone()

	that.mu.Unlock()

	that.mirrorUpdate(snapshot)

	return snapshot, nil
}

// RemoveMember drops the connection from every room it belongs to. A room
// still in play finishes in favour of the remaining member; an emptied room
// is deleted whatever its state. Safe to call repeatedly for the same
// connection.
func (that *RoomManager) RemoveMember(connectionID string) []Departure {
	that.mu.Lock()

	var departures []Departure

	for roomID, room := range that.rooms {
		opponent := room.OpponentOf(connectionID)

		if !room.RemoveMember(connectionID) {
			continue
		}

		if !room.IsFinished() {
			room.Status = entity.StatusFinished
			room.Turn = ""
			if opponent != nil {
				room.Winner = opponent.Mark
			}
		}

		departure := Departure{
			Room: room.Clone(),
		}

		for _, member := range room.Members {
			departure.Remaining = append(departure.Remaining, member.ConnectionID)
		}

		if len(room.Members) == 0 {
			delete(that.rooms, roomID)
			departure.Deleted = true
		}

		departures = append(departures, departure)
	}

	that.mu.Unlock()

	for _, departure := range departures {
		that.logger.Info("member removed",
			"roomID", departure.Room.ID,
			"connectionID", connectionID,
			"deleted", departure.Deleted,
		)

		if departure.Deleted {
			that.mirrorDelete(departure.Room.ID)
			continue
		}

		that.mirrorUpdate(departure.Room)
	}

	return departures
}

// mirrorUpdate pushes a snapshot to the mirror without delaying game-state
// processing; mirror failures are logged and swallowed.
func (that *RoomManager) mirrorUpdate(room *entity.Room) {
	if that.mirror == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		if err := that.mirror.CreateOrUpdate(ctx, room); err != nil {
			that.logger.Error("failed to mirror room", "roomID", room.ID, "error", err)
		}
	}()
}

func (that *RoomManager) mirrorDelete(roomID string) {
	if that.mirror == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		if err := that.mirror.DeleteByID(ctx, roomID); err != nil {
			that.logger.Error("failed to delete mirrored room", "roomID", roomID, "error", err)
		}
	}()
}
