package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/negotiation-relay/domain/session"
)

// Client is one connected peer as seen by the router and registry. The
// concrete implementation wraps a WebSocket; tests substitute fakes.
type Client interface {
	session.Peer
	// Bind associates the connection with a session and display name. Set on
	// create/join and re-set on reconnect.
	Bind(sessionID, userName string)
	// Binding returns the current association; bound is false before the
	// first successful create/join.
	Binding() (sessionID, userName string, bound bool)
	// Close marks the connection closed; subsequent sends are no-ops.
	Close()
}

// Conn wraps a WebSocket connection with its session binding.
//
// The keep-alive ticker and the router may write concurrently, so every
// write goes through the mutex. The underlying fiber/fasthttp conn is not
// safe for concurrent writes.
type Conn struct {
	id        string
	ws        *websocket.Conn
	mu        sync.Mutex
	closed    bool
	sessionID string
	userName  string
}

var _ Client = (*Conn)(nil)

// NewConn wraps an accepted WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id: uuid.New().String(),
		ws: ws,
	}
}

// ID returns the connection id. It identifies the transport socket, not the
// participant bound to it.
func (c *Conn) ID() string { return c.id }

// Bind associates the connection with a session and display name.
func (c *Conn) Bind(sessionID, userName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.userName = userName
}

// Binding returns the current session association.
func (c *Conn) Binding() (string, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, c.userName, c.sessionID != ""
}

// Send serializes frame as JSON and writes it as a text message. A closed or
// closing peer is not an error condition for the sender: the write is
// silently skipped.
func (c *Conn) Send(frame any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("write to closing peer skipped", "connID", c.id, "error", err)
	}
	return nil
}

// Close marks the connection closed. Idempotent; safe during teardown.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.Close()
}
