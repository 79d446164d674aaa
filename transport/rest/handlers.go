package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
)

type roomLister interface {
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	ListActive(ctx context.Context) ([]*entity.Room, error)
}

type roomHandler struct {
	rooms roomLister
}

func newRoomHandler(rooms roomLister) *roomHandler {
	return &roomHandler{
		rooms: rooms,
	}
}

func (that *roomHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := that.rooms.ListActive(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, rooms)
}

func (that *roomHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/rooms/")
	if roomID == "" {
		http.Error(w, "room id is required", http.StatusBadRequest)
		return
	}

	room, err := that.rooms.GetByID(r.Context(), roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, room)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
