package websocket

import (
	"encoding/json"
	"fmt"
)

func (that *Server) handleCreateRoom(client *Client, message *Message) error {
	var payload RoomPayload

	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal room payload: %w", err)
	}

	room, err := that.rooms.CreateRoom(payload.RoomID, client.id)
	if err != nil {
		that.unicast(client.id, ActionError, ErrorPayload{Error: err.Error()})
		return nil
	}

	// no opponent yet, so the state goes to the requester only
	that.unicast(client.id, ActionRoomJoined, RoomJoinedPayload{
		RoomID:       room.ID,
		PlayerSymbol: room.MemberByConnection(client.id).Mark,
		Board:        room.Board,
		Turn:         room.Turn,
		Message:      "Waiting for an opponent...",
	})

	return nil
}

func (that *Server) handleJoinRoom(client *Client, message *Message) error {
	var payload RoomPayload

	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal room payload: %w", err)
	}

	room, err := that.rooms.JoinRoom(payload.RoomID, client.id)
	if err != nil {
		that.unicast(client.id, ActionError, ErrorPayload{Error: err.Error()})
		return nil
	}

	startMessage := fmt.Sprintf("Game started! Player %s's turn", room.Turn)

	that.unicast(client.id, ActionRoomJoined, RoomJoinedPayload{
		RoomID:       room.ID,
		PlayerSymbol: room.MemberByConnection(client.id).Mark,
		Board:        room.Board,
		Turn:         room.Turn,
		Message:      startMessage,
	})

	that.roomCast(room, ActionGameUpdate, gameUpdateFor(room, startMessage))

	return nil
}

func (that *Server) handleMakeMove(client *Client, message *Message) error {
	log := that.logger.With("method", "handleMakeMove", "connectionID", client.id)

	var payload MovePayload

	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal move payload: %w", err)
	}

	room, err := that.rooms.MakeTurn(payload.RoomID, client.id, payload.Player, payload.Index)
	if err != nil {
		// discarded by default; the reason reaches the client only when
		// reject-invalid-moves is configured
		if that.rejectInvalidMoves {
			that.unicast(client.id, ActionError, ErrorPayload{Error: err.Error()})
			return nil
		}

		log.Debug("move discarded", "roomID", payload.RoomID, "error", err)

		return nil
	}

	that.roomCast(room, ActionGameUpdate, gameUpdateFor(room, stateMessage(room)))

	return nil
}
