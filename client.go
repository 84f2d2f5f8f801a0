package wsrelay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrRoomRequired is returned by room-scoped client operations called
// without a room identifier.
var ErrRoomRequired = errors.New("room identifier is required")

// DefaultReconnectDelay is the fixed delay between a transport closure and
// the next dial attempt.
const DefaultReconnectDelay = 3 * time.Second

// ClientConfig configures a relay Client.
type ClientConfig struct {
	// URL is the websocket endpoint of a relay process. Required.
	URL string

	// ConnectionID is the caller-supplied identifier hashed into the
	// client's identity. Required, must be non-empty.
	ConnectionID string

	// OnMessage receives every inbound frame, acks and errors included.
	OnMessage func(payload []byte)

	// OnOpen runs after each successful open, once the connect handshake
	// has been sent.
	OnOpen func()

	// ReconnectDelay overrides DefaultReconnectDelay.
	ReconnectDelay time.Duration

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client owns a websocket transport to a relay process. It reconnects with
// a fixed delay after any closure and replays the connect handshake on each
// open, so the server rejoins persisted rooms without the caller
// resubscribing.
//
// The room operations are fire-and-forget: while no transport is open,
// writes are silently dropped rather than queued. Callers must not assume
// delivery during a reconnect gap.
type Client struct {
	url       string
	identity  string
	onMessage func([]byte)
	onOpen    func()
	delay     time.Duration
	dialer    *websocket.Dialer
	log       *slog.Logger

	// seq numbers outbound messages; seeded randomly so identifiers from
	// successive client processes are unlikely to repeat. Uniqueness is
	// per-connection only.
	seq atomic.Int64

	mu sync.Mutex // guards ws and serializes writes
	ws *websocket.Conn

	closed atomic.Bool
	done   chan struct{}
}

// NewClient creates a client and starts its connect loop. It fails fast if
// the connection identifier is empty.
func NewClient(cfg ClientConfig) (*Client, error) {
	identity, err := HashIdentity(cfg.ConnectionID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		url:       cfg.URL,
		identity:  identity,
		onMessage: cfg.OnMessage,
		onOpen:    cfg.OnOpen,
		delay:     cfg.ReconnectDelay,
		dialer:    cfg.Dialer,
		log:       cfg.Logger,
		done:      make(chan struct{}),
	}
	if c.delay <= 0 {
		c.delay = DefaultReconnectDelay
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.seq.Store(rand.Int64N(1 << 53))

	go c.run()
	return c, nil
}

// Identity returns the hashed identity token sent on each connect.
func (c *Client) Identity() string {
	return c.identity
}

// Connected reports whether a transport is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// Subscribe declares membership in a room. The room identifier is validated
// synchronously; the write itself is fire-and-forget.
func (c *Client) Subscribe(room string) error {
	if room == "" {
		return ErrRoomRequired
	}
	c.write(&Message{ID: NumberID(c.next()), Type: TypeSubscribe, RoomID: room})
	return nil
}

// Unsubscribe withdraws membership from a room.
func (c *Client) Unsubscribe(room string) error {
	if room == "" {
		return ErrRoomRequired
	}
	c.write(&Message{ID: NumberID(c.next()), Type: TypeUnsubscribe, RoomID: room})
	return nil
}

// Send publishes a message to a room and returns the assigned message
// identifier. body is marshaled as the opaque message content.
func (c *Client) Send(room string, body any) (int64, error) {
	if room == "" {
		return 0, ErrRoomRequired
	}
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message body: %w", err)
	}

	id := c.next()
	c.write(&Message{ID: NumberID(id), Type: TypeMessage, RoomID: room, Body: data})
	return id, nil
}

// Disconnect asks the server for a graceful teardown. The transport stays
// open until the server-side caller closes it; the client will still
// reconnect afterwards unless Close is called.
func (c *Client) Disconnect() {
	c.write(&Message{ID: NumberID(c.next()), Type: TypeDisconnect})
}

// Close stops the reconnect loop and closes any open transport.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// run is the transport lifecycle loop: dial, handshake, read until closure,
// wait the fixed delay, repeat.
func (c *Client) run() {
	for {
		if c.closed.Load() {
			return
		}

		ws, _, err := c.dialer.Dial(c.url, nil)
		if err != nil {
			c.log.Debug("dial failed", "url", c.url, "error", err)
			if !c.wait() {
				return
			}
			continue
		}

		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()

		// The handshake goes out before the caller's open hook. A send
		// failure gets one immediate synchronous retry; after that the
		// next open/close cycle takes over.
		if err := c.sendConnect(); err != nil {
			c.log.Warn("connect handshake failed", "error", err)
			if err := c.sendConnect(); err != nil {
				c.log.Warn("connect handshake retry failed", "error", err)
			}
		}
		if c.onOpen != nil {
			c.onOpen()
		}

		c.readLoop(ws)

		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		ws.Close()

		if !c.wait() {
			return
		}
	}
}

func (c *Client) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.log.Debug("transport closed", "error", err)
			return
		}
		if c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

// wait sleeps the fixed reconnect delay, returning false if the client was
// closed meanwhile.
func (c *Client) wait() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(c.delay):
		return true
	}
}

func (c *Client) sendConnect() error {
	msg := &Message{ID: NumberID(c.next()), Type: TypeConnect, ConnectionID: c.identity}
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) write(msg *Message) {
	payload, err := msg.Encode()
	if err != nil {
		c.log.Error("encode message failed", "type", msg.Type, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		// No transport during a reconnect gap; dropped, not queued.
		return
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug("write dropped", "type", msg.Type, "error", err)
	}
}

func (c *Client) next() int64 {
	return c.seq.Add(1)
}
