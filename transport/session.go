package transport

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowClient    = errors.New("slow client")
)

// Config holds transport timing limits.
type Config struct {
	WriteWait      time.Duration // deadline for a single frame write
	PongWait       time.Duration // read deadline refreshed on each pong
	PingPeriod     time.Duration // keepalive ping interval, < PongWait
	MaxMessageSize int64         // read limit in bytes
}

// DefaultConfig returns the default transport timing limits.
func DefaultConfig() *Config {
	return &Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 1e6,
	}
}

// Session is one accepted websocket connection: a read pump delivering text
// frames to the message handler and a write pump draining the outgoing
// queue. Binary frames are logged and ignored.
type Session struct {
	id        string
	conn      *websocket.Conn
	config    *Config
	log       *slog.Logger
	outgoing  chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	mu        sync.RWMutex
	onMessage func([]byte)
	onClose   func(string)
}

func newSession(id string, conn *websocket.Conn, config *Config, log *slog.Logger) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		config:   config,
		log:      log,
		outgoing: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Send queues a text frame for the client. It fails fast with ErrSlowClient
// when the outgoing queue is full rather than blocking the caller.
func (s *Session) Send(payload []byte) error {
	select {
	case s.outgoing <- payload:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return ErrSlowClient
	}
}

// Close closes the session.
func (s *Session) Close() error {
	s.CloseWithReason("closed by server")
	return nil
}

// CloseWithReason closes the session and reports the reason to the close
// handler.
func (s *Session) CloseWithReason(reason string) {
	s.closeOnce.Do(func() {
		close(s.closed)

		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.config.WriteWait))
		s.conn.Close()

		s.mu.RLock()
		handler := s.onClose
		s.mu.RUnlock()
		if handler != nil {
			handler(reason)
		}
	})
}

// OnMessage sets the text frame handler.
func (s *Session) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnClose sets the close handler. Multiple handlers chain in registration
// order.
func (s *Session) OnClose(fn func(string)) {
	s.mu.Lock()
	prev := s.onClose
	if prev == nil {
		s.onClose = fn
	} else {
		s.onClose = func(reason string) {
			prev(reason)
			fn(reason)
		}
	}
	s.mu.Unlock()
}

func (s *Session) start() {
	go s.writeLoop()
	go s.readLoop()
}

func (s *Session) readLoop() {
	defer s.CloseWithReason("read error")

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
		return nil
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		if msgType != websocket.TextMessage {
			s.log.Warn("binary frame rejected", "session", s.id)
			continue
		}

		s.mu.RLock()
		handler := s.onMessage
		s.mu.RUnlock()
		if handler != nil {
			handler(data)
		}
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.CloseWithReason("write error")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.CloseWithReason("ping failed")
				return
			}
		case <-s.closed:
			return
		}
	}
}
