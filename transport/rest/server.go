package rest

import (
	"fmt"
	"net/http"
	"time"
)

// Start serves the read-only status surface: health and live room
// snapshots from the mirror.
func Start(port string, rooms roomLister) error {
	roomHandler := newRoomHandler(rooms)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", pingHandler)
	mux.HandleFunc("/rooms", roomHandler.listRooms)
	mux.HandleFunc("/rooms/", roomHandler.getRoom)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
