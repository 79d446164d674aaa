package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const (
	// client → server
	ActionCreateRoom = "createRoom"
	ActionJoinRoom   = "joinRoom"
	ActionMakeMove   = "makeMove"

	// server → client
	ActionRoomJoined   = "roomJoined"
	ActionGameUpdate   = "gameUpdate"
	ActionOpponentLeft = "opponentLeft"
	ActionError        = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type MovePayload struct {
	RoomID string `json:"roomId"`
	Index  int    `json:"index"`
	Player string `json:"player"`
}

// RoomJoinedPayload acknowledges a create or join to the requesting
// connection only.
type RoomJoinedPayload struct {
	RoomID       string    `json:"roomId"`
	PlayerSymbol string    `json:"playerSymbol"`
	Board        [9]string `json:"board"`
	Turn         string    `json:"turn"`
	Message      string    `json:"message"`
}

// GameUpdatePayload is room-cast after any state change.
type GameUpdatePayload struct {
	Board    [9]string `json:"board"`
	Turn     string    `json:"turn"`
	GameOver bool      `json:"gameOver"`
	Winner   string    `json:"winner"`
	Message  string    `json:"message"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func newMessage(action string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	messageBytes, err := json.Marshal(Message{
		Action:  action,
		Payload: payloadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return messageBytes, nil
}

func gameUpdateFor(room *entity.Room, message string) GameUpdatePayload {
	return GameUpdatePayload{
		Board:    room.Board,
		Turn:     room.Turn,
		GameOver: room.IsFinished(),
		Winner:   room.Winner,
		Message:  message,
	}
}

// stateMessage is the human-readable line accompanying a state change.
func stateMessage(room *entity.Room) string {
	if !room.IsFinished() {
		return fmt.Sprintf("Player %s's turn", room.Turn)
	}

	if room.Winner == entity.PlayerDraw {
		return "It's a draw!"
	}

	return fmt.Sprintf("Player %s wins!", room.Winner)
}
