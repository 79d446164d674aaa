package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096

	sendBufferSize = 32
)

// Client is one live connection. The server never writes to the socket
// directly: every outbound message goes through the buffered send channel
// and the single writePump goroutine.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// enqueue hands a message to the write pump without blocking. A gone or
// saturated connection drops the message; delivery is best effort.
func (that *Client) enqueue(message []byte) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.send <- message:
		return true
	default:
		return false
	}
}

func (that *Client) readPump() {
	log := that.server.logger.With("method", "readPump", "connectionID", that.id)

	defer func() {
		that.server.handleDisconnect(that)
		that.close()
	}()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.server.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(that, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		that.close()
	}()

	for {
		select {
		case message := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-that.done:
			return
		}
	}
}

func (that *Client) close() {
	that.closeOnce.Do(func() {
		close(that.done)
		_ = that.conn.Close()
	})
}
