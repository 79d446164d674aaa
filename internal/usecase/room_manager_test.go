package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

// mirrorFake records mirror calls; writes are asynchronous, so assertions
// on it go through waitFor.
type mirrorFake struct {
	mu      sync.Mutex
	updates []string
	deletes []string
}

func (that *mirrorFake) CreateOrUpdate(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.updates = append(that.updates, room.ID)

	return nil
}

func (that *mirrorFake) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.deletes = append(that.deletes, id)

	return nil
}

func (that *mirrorFake) deleted(id string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, deletedID := range that.deletes {
		if deletedID == id {
			return true
		}
	}

	return false
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	require.Eventually(t, condition, time.Second, 10*time.Millisecond)
}

func newTestManager() (*RoomManager, *mirrorFake) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mirror := &mirrorFake{}

	return NewRoomManager(logger, mirror), mirror
}

func TestRoomManager_CreateRoom(t *testing.T) {
	t.Run("Creates a waiting room with the requester as X", func(t *testing.T) {
		// Given: an empty registry
		manager, _ := newTestManager()

		// When: a connection creates a room
		room, err := manager.CreateRoom("abc", "conn-a")

		// Then: the room should be waiting with the creator holding X
		require.NoError(t, err)
		assert.Equal(t, "abc", room.ID)
		assert.Equal(t, entity.StatusWaiting, room.Status)
		assert.Equal(t, entity.PlayerX, room.Turn)
		require.Len(t, room.Members, 1)
		assert.Equal(t, entity.PlayerX, room.Members[0].Mark)
	})

	t.Run("Rejects an empty or whitespace room id", func(t *testing.T) {
		// Given: an empty registry
		manager, _ := newTestManager()

		// When: creating rooms with blank ids
		_, errEmpty := manager.CreateRoom("", "conn-a")
		_, errBlank := manager.CreateRoom("   ", "conn-a")

		// Then: both should be rejected
		require.ErrorIs(t, errEmpty, apperror.ErrEmptyRoomID)
		require.ErrorIs(t, errBlank, apperror.ErrEmptyRoomID)
	})

	t.Run("Rejects a duplicate room id", func(t *testing.T) {
		// Given: a registry with one room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)

		// When: another connection reuses the id
		_, err = manager.CreateRoom("abc", "conn-b")

		// Then: the creation should be rejected
		require.ErrorIs(t, err, apperror.ErrRoomAlreadyExists)
	})

	t.Run("Room ids are case-sensitive", func(t *testing.T) {
		// Given: a registry with one room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)

		// When: creating a room whose id differs only in case
		_, err = manager.CreateRoom("ABC", "conn-b")

		// Then: it should be treated as a distinct room
		require.NoError(t, err)
	})
}

func TestRoomManager_JoinRoom(t *testing.T) {
	t.Run("Second entrant gets O and the game starts", func(t *testing.T) {
		// Given: a waiting room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)

		// When: a second connection joins
		room, err := manager.JoinRoom("abc", "conn-b")

		// Then: the room should be ongoing with both marks taken and X to move
		require.NoError(t, err)
		assert.Equal(t, entity.StatusOngoing, room.Status)
		assert.Equal(t, entity.PlayerX, room.Turn)
		require.Len(t, room.Members, 2)
		assert.Equal(t, entity.PlayerO, room.MemberByConnection("conn-b").Mark)
	})

	t.Run("Rejects joining an unknown room without creating one", func(t *testing.T) {
		// Given: an empty registry
		manager, _ := newTestManager()

		// When: a connection joins a room that does not exist
		_, err := manager.JoinRoom("nonexistent", "conn-c")

		// Then: the join should be rejected and no room created as a side effect
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = manager.JoinRoom("nonexistent", "conn-c")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Rejects a third member", func(t *testing.T) {
		// Given: a full room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// When: a third connection tries to join
		_, err = manager.JoinRoom("abc", "conn-c")

		// Then: the join should be rejected
		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("Joining a room twice returns the current state unchanged", func(t *testing.T) {
		// Given: an ongoing room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// When: the second member joins again
		room, err := manager.JoinRoom("abc", "conn-b")

		// Then: the state should be returned without adding a member
		require.NoError(t, err)
		require.Len(t, room.Members, 2)
	})
}

func TestRoomManager_MakeTurn(t *testing.T) {
	t.Run("Accepted move updates board and turn", func(t *testing.T) {
		// Given: an ongoing room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// When: X takes the center
		room, err := manager.MakeTurn("abc", "conn-a", entity.PlayerX, 4)

		// Then: the snapshot should reflect the move
		require.NoError(t, err)
		expectedBoard := [9]string{
			entity.EmptyCell, entity.EmptyCell, entity.EmptyCell,
			entity.EmptyCell, entity.PlayerX, entity.EmptyCell,
			entity.EmptyCell, entity.EmptyCell, entity.EmptyCell,
		}
		assert.Equal(t, expectedBoard, room.Board)
		assert.Equal(t, entity.PlayerO, room.Turn)
		assert.False(t, room.IsFinished())
	})

	t.Run("Rejects a move in an unknown room", func(t *testing.T) {
		// Given: an empty registry
		manager, _ := newTestManager()

		// When: a move targets a room that does not exist
		_, err := manager.MakeTurn("nonexistent", "conn-a", entity.PlayerX, 0)

		// Then: the move should be rejected
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Rejection reasons pass through from the state machine", func(t *testing.T) {
		// Given: an ongoing room with X to move
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// When: O moves out of turn
		_, err = manager.MakeTurn("abc", "conn-b", entity.PlayerO, 0)

		// Then: the state machine's reason should surface
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Finished room stays registered until its members leave", func(t *testing.T) {
		// Given: a room where X wins
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		for _, move := range []struct {
			conn string
			mark string
			cell int
		}{
			{"conn-a", entity.PlayerX, 0},
			{"conn-b", entity.PlayerO, 3},
			{"conn-a", entity.PlayerX, 1},
			{"conn-b", entity.PlayerO, 4},
			{"conn-a", entity.PlayerX, 2},
		} {
			_, err = manager.MakeTurn("abc", move.conn, move.mark, move.cell)
			require.NoError(t, err)
		}

		// When: a member rejoins after the game finished
		room, err := manager.JoinRoom("abc", "conn-a")

		// Then: the finished room should still be there
		require.NoError(t, err)
		assert.True(t, room.IsFinished())
		assert.Equal(t, entity.PlayerX, room.Winner)
		assert.Empty(t, room.Turn)
	})
}

func TestRoomManager_RemoveMember(t *testing.T) {
	t.Run("Departure from a live room finishes it for the remaining member", func(t *testing.T) {
		// Given: an ongoing room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// When: the O connection disconnects
		departures := manager.RemoveMember("conn-b")

		// Then: the room should finish with the remaining member as winner
		require.Len(t, departures, 1)
		departure := departures[0]
		assert.False(t, departure.Deleted)
		assert.Equal(t, []string{"conn-a"}, departure.Remaining)
		assert.True(t, departure.Room.IsFinished())
		assert.Equal(t, entity.PlayerX, departure.Room.Winner)
		assert.Empty(t, departure.Room.Turn)
	})

	t.Run("Removing the last member deletes the room", func(t *testing.T) {
		// Given: a room whose opponent already left
		manager, mirror := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)
		manager.RemoveMember("conn-b")

		// When: the remaining member disconnects too
		departures := manager.RemoveMember("conn-a")

		// Then: the room should be gone from the registry and the mirror
		require.Len(t, departures, 1)
		assert.True(t, departures[0].Deleted)
		assert.Empty(t, departures[0].Remaining)

		_, err = manager.JoinRoom("abc", "conn-c")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		waitFor(t, func() bool { return mirror.deleted("abc") })
	})

	t.Run("Departure from a waiting room leaves no winner", func(t *testing.T) {
		// Given: a room still waiting for an opponent
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)

		// When: the creator disconnects
		departures := manager.RemoveMember("conn-a")

		// Then: the room should be deleted with no winner recorded
		require.Len(t, departures, 1)
		assert.True(t, departures[0].Deleted)
		assert.Empty(t, departures[0].Room.Winner)
	})

	t.Run("A departure after the game finished keeps the recorded winner", func(t *testing.T) {
		// Given: a room finished by a disconnect
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)
		manager.RemoveMember("conn-b")

		// When: the winner disconnects afterwards
		departures := manager.RemoveMember("conn-a")

		// Then: the recorded winner should not change
		require.Len(t, departures, 1)
		assert.Equal(t, entity.PlayerX, departures[0].Room.Winner)
	})

	t.Run("Removing an unknown connection is a no-op", func(t *testing.T) {
		// Given: a registry with one room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)

		// When: removing a connection that is in no room, twice
		first := manager.RemoveMember("conn-z")
		second := manager.RemoveMember("conn-z")

		// Then: neither call should report a departure
		assert.Empty(t, first)
		assert.Empty(t, second)
	})

	t.Run("Duplicate disconnect signals are idempotent", func(t *testing.T) {
		// Given: an ongoing room
		manager, _ := newTestManager()
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// When: the same disconnect is signalled twice
		first := manager.RemoveMember("conn-b")
		second := manager.RemoveMember("conn-b")

		// Then: only the first signal should produce a departure
		require.Len(t, first, 1)
		assert.Empty(t, second)
	})
}

func TestRoomManager_Mirror(t *testing.T) {
	t.Run("State changes reach the mirror without blocking", func(t *testing.T) {
		// Given: a manager with a recording mirror
		manager, mirror := newTestManager()

		// When: a room is created and joined
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)

		// Then: both snapshots should eventually be mirrored
		waitFor(t, func() bool {
			mirror.mu.Lock()
			defer mirror.mu.Unlock()
			return len(mirror.updates) >= 2
		})
	})

	t.Run("A nil mirror disables mirroring", func(t *testing.T) {
		// Given: a manager without a mirror
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		manager := NewRoomManager(logger, nil)

		// When: the registry is exercised end to end
		_, err := manager.CreateRoom("abc", "conn-a")
		require.NoError(t, err)
		_, err = manager.JoinRoom("abc", "conn-b")
		require.NoError(t, err)
		departures := manager.RemoveMember("conn-a")

		// Then: everything should work without panics
		require.Len(t, departures, 1)
	})
}
