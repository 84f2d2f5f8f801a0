// Package transport provides the websocket accept loop and per-connection
// session used by the relay. Frames are opaque text; the relay's protocol
// layer does all interpretation. Binary frames are rejected.
package transport

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server accepts websocket connections and hands sessions to the registered
// connect handler.
type Server struct {
	config    *Config
	upgrader  websocket.Upgrader
	sessions  sync.Map
	onConnect func(*Session)
	log       *slog.Logger
}

// NewServer creates a transport server. A nil config uses DefaultConfig, a
// nil logger uses slog.Default().
func NewServer(config *Config, log *slog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		config: config,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // TODO: Make configurable
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// OnConnect sets the handler invoked for each accepted session, before the
// session's pumps start. Handlers register OnMessage/OnClose here so no
// early frame is dropped.
func (s *Server) OnConnect(fn func(*Session)) {
	s.onConnect = fn
}

// ServeHTTP upgrades the request and starts a session.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sid := generateSID()
	session := newSession(sid, conn, s.config, s.log)
	s.sessions.Store(sid, session)

	session.OnClose(func(reason string) {
		s.sessions.Delete(sid)
	})

	if s.onConnect != nil {
		s.onConnect(session)
	}

	session.start()
}

// GetSession retrieves a session by ID.
func (s *Server) GetSession(sid string) (*Session, bool) {
	val, ok := s.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// Close closes all sessions.
func (s *Server) Close() {
	s.sessions.Range(func(key, value interface{}) bool {
		session := value.(*Session)
		session.CloseWithReason("server shutdown")
		return true
	})
}

func generateSID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
