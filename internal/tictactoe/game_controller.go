package tictactoe

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

var (
	ErrInvalidCell = errors.New("invalid cell index")
	ErrNotYourMark = errors.New("mark does not belong to this connection")
)

// MakeTurn is the single entry point for mutating a room's board. A rejected
// move leaves the room untouched and reports why; the transport decides
// whether the reason ever reaches the client.
func MakeTurn(room *entity.Room, connectionID, mark string, cell int) error {
	if room.IsFinished() {
		return apperror.ErrGameFinished
	}

	if room.IsWaiting() {
		return apperror.ErrGameIsNotStarted
	}

	if err := validateMove(room, connectionID, mark, cell); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	room.Board[cell] = mark
	updateGameStatus(room, mark)

	return nil
}

// validateMove - checks if the move is valid.
func validateMove(room *entity.Room, connectionID, mark string, cell int) error {
	if cell < 0 || cell >= len(room.Board) {
		return ErrInvalidCell
	}

	if room.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	if room.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	member := room.MemberByConnection(connectionID)
	if member == nil || member.Mark != mark {
		return ErrNotYourMark
	}

	return nil
}

// updateGameStatus - evaluates the board after an accepted move.
func updateGameStatus(room *entity.Room, mark string) {
	switch winner := room.DetermineResult(); winner {
	case entity.PlayerX, entity.PlayerO, entity.PlayerDraw:
		room.Winner = winner
		room.Status = entity.StatusFinished
		room.Turn = ""
	default:
		room.Turn = toggleMark(mark)
	}
}

func toggleMark(currentMark string) string {
	if currentMark == entity.PlayerX {
		return entity.PlayerO
	}

	return entity.PlayerX
}
