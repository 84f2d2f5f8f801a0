package wsrelay

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the transport-side surface the relay needs from a connection:
// a stable identifier, a way to write discrete text frames, and a close.
type Session interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Conn wraps a transport session with the relay's per-connection state: the
// identity bound by the connect handshake and the graceful-close flag that
// distinguishes an expected teardown from an abrupt one.
type Conn struct {
	session Session

	mu       sync.Mutex
	identity string
	graceful bool
}

// NewConn wraps a transport session. Until a connect message binds the real
// identity, a random placeholder is used so membership lookups for an
// unbound connection cannot collide with a real identity.
func NewConn(session Session) *Conn {
	return &Conn{
		session:  session,
		identity: uuid.NewString(),
	}
}

// ID returns the transport session identifier.
func (c *Conn) ID() string {
	return c.session.ID()
}

// Identity returns the connection's current identity token.
func (c *Conn) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// SetIdentity binds the identity supplied by a connect message.
func (c *Conn) SetIdentity(identity string) {
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
}

// MarkGraceful flags the connection as gracefully closing. It is set while
// handling a disconnect message, before the transport close arrives.
func (c *Conn) MarkGraceful() {
	c.mu.Lock()
	c.graceful = true
	c.mu.Unlock()
}

// Graceful reports whether a disconnect message was handled for this
// connection.
func (c *Conn) Graceful() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graceful
}

// Send writes a text frame to the underlying transport.
func (c *Conn) Send(payload []byte) error {
	return c.session.Send(payload)
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.session.Close()
}
