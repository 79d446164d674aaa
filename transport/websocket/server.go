package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/pkg"
	"github.com/rocketscienceinc/gameroom-backend/internal/usecase"
)

type roomManager interface {
	CreateRoom(roomID, connectionID string) (*entity.Room, error)
	JoinRoom(roomID, connectionID string) (*entity.Room, error)
	MakeTurn(roomID, connectionID, mark string, cell int) (*entity.Room, error)
	RemoveMember(connectionID string) []usecase.Departure
}

// Server is the connection gateway: it upgrades clients, assigns each a
// connection identity and routes inbound actions to the room manager.
type Server struct {
	logger *slog.Logger
	rooms  roomManager

	rejectInvalidMoves bool

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client

	handlers map[string]func(client *Client, message *Message) error
}

func New(logger *slog.Logger, rooms roomManager, rejectInvalidMoves bool) *Server {
	server := &Server{
		logger: logger,
		rooms:  rooms,

		rejectInvalidMoves: rejectInvalidMoves,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},

		clients:  make(map[string]*Client),
		handlers: make(map[string]func(*Client, *Message) error),
	}

	server.handlers[ActionCreateRoom] = server.handleCreateRoom
	server.handlers[ActionJoinRoom] = server.handleJoinRoom
	server.handlers[ActionMakeMove] = server.handleMakeMove

	return server
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleUpgrade)

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleUpgrade - upgrades the connection and starts the client pumps.
func (that *Server) handleUpgrade(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handleUpgrade")

	conn, err := that.upgrader.Upgrade(writer, req, that.sessionHeader(req))
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(uuid.NewString(), conn, that)

	that.mu.Lock()
	that.clients[client.id] = client
	that.mu.Unlock()

	log.Info("WebSocket connection established", "connectionID", client.id)

	go client.writePump()
	go client.readPump()
}

// sessionHeader - issues a session cookie on first contact. The header is
// handed to the upgrader so it rides the handshake response.
func (that *Server) sessionHeader(req *http.Request) http.Header {
	log := that.logger.With("method", "sessionHeader")

	if _, err := req.Cookie("user_session"); err == nil {
		return nil
	}

	cookie := &http.Cookie{
		Name:    "user_session",
		Value:   pkg.GenerateNewSessionID(),
		Expires: time.Now().Add(24 * time.Hour),
		Path:    "/ws",
	}

	log.Info("session cookie not found, new one created", "cookie", cookie.Value)

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return header
}

// handleDisconnect runs the session lifecycle sequence for one closed
// connection. Duplicate signals for the same connection are no-ops.
func (that *Server) handleDisconnect(client *Client) {
	log := that.logger.With("method", "handleDisconnect", "connectionID", client.id)

	that.mu.Lock()
	_, known := that.clients[client.id]
	delete(that.clients, client.id)
	that.mu.Unlock()

	if !known {
		return
	}

	log.Info("WebSocket connection closed")

	for _, departure := range that.rooms.RemoveMember(client.id) {
		for _, connectionID := range departure.Remaining {
			that.unicast(connectionID, ActionOpponentLeft, struct{}{})
			that.unicast(connectionID, ActionGameUpdate, gameUpdateFor(departure.Room, "Opponent left the game"))
		}
	}
}

// unicast delivers one message to one connection identity, best effort.
func (that *Server) unicast(connectionID, action string, payload any) {
	log := that.logger.With("method", "unicast")

	message, err := newMessage(action, payload)
	if err != nil {
		log.Error("failed to build message", "action", action, "error", err)
		return
	}

	that.mu.RLock()
	client, ok := that.clients[connectionID]
	that.mu.RUnlock()

	if !ok {
		return
	}

	if !client.enqueue(message) {
		log.Debug("message dropped", "action", action, "connectionID", connectionID)
	}
}

// roomCast delivers one message to every current member of a room. Failure
// to reach one member never blocks delivery to the others.
func (that *Server) roomCast(room *entity.Room, action string, payload any) {
	for _, member := range room.Members {
		that.unicast(member.ConnectionID, action, payload)
	}
}
