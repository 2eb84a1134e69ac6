package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"telescreen-backend/internal/models"
)

// socket is the slice of *websocket.Conn the hub actually uses. Tests
// substitute an in-memory implementation.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ socket = (*websocket.Conn)(nil)

// Conn is one ephemeral websocket connection bound to a logical identity.
// The server assigns the ID; it doubles as the signaling routing address
// (the "socket id" on the wire).
type Conn struct {
	ID       uuid.UUID
	Identity models.Identity

	sock    socket
	writeMu sync.Mutex
	rooms   map[string]struct{}
}

func newConn(sock socket, identity models.Identity) *Conn {
	return &Conn{
		ID:       uuid.New(),
		Identity: identity,
		sock:     sock,
		rooms:    make(map[string]struct{}),
	}
}

// send marshals an envelope and writes it. Write errors are returned but a
// failed send never tears down the connection here; the read loop owns the
// connection lifecycle.
func (c *Conn) send(event string, payload interface{}) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = b
	}

	msg, err := json.Marshal(models.Event{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, msg)
}

func (c *Conn) sendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) close() {
	c.sock.Close()
}
