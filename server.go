package wsrelay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures a relay Server.
type Config struct {
	// Bus is the backplane pub/sub half. Required.
	Bus Bus

	// Store is the backplane membership store. Required.
	Store Store

	// Logger receives the relay's structured logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Metrics is the Prometheus registerer for relay instrumentation.
	// Optional; a nil value keeps metrics on a private registry.
	Metrics prometheus.Registerer
}

// Server is one relay process: the connection table, the room registry, the
// protocol dispatcher, and the fanout path between them. Transport accept
// loops hand connections to Accept and route frames and closures to
// HandleFrame and HandleClose.
type Server struct {
	registry    *Registry
	dispatcher  *Dispatcher
	memberships *Memberships
	publisher   *Publisher
	state       *ServiceState
	metrics     *Metrics
	log         *slog.Logger

	mu    sync.RWMutex
	conns map[string]*Conn

	listenersMu sync.RWMutex
	listeners   []EventListener
}

// NewServer creates a relay server over the given backplane. The bus's
// delivery callback is bound to the server's room fanout.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		state:   NewServiceState(),
		metrics: NewMetrics(cfg.Metrics),
		log:     log,
		conns:   make(map[string]*Conn),
	}
	s.registry = NewRegistry(s, cfg.Bus, log, s.metrics)
	s.memberships = NewMemberships(cfg.Store, log)
	s.publisher = NewPublisher(cfg.Bus, log, s.metrics)
	s.dispatcher = NewDispatcher(s.registry, s.memberships, s.publisher, s.state, log, s.metrics, s.emit)

	cfg.Bus.OnDelivery(s.registry.RouteIncoming)

	return s
}

// State returns the readiness flags for the three backplane connections.
// Backplane implementations flip these from their lifecycle signals.
func (s *Server) State() *ServiceState {
	return s.state
}

// On registers an observability event listener.
func (s *Server) On(listener EventListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, listener)
	s.listenersMu.Unlock()
}

// Accept wraps a newly accepted transport session and adds it to the
// connection table.
func (s *Server) Accept(ctx context.Context, session Session) *Conn {
	conn := NewConn(session)

	s.mu.Lock()
	s.conns[conn.ID()] = conn
	s.mu.Unlock()

	s.metrics.ActiveConnections.Inc()
	s.log.Debug("connection accepted", "conn", conn.ID())
	return conn
}

// HandleFrame processes one inbound text frame for conn.
func (s *Server) HandleFrame(ctx context.Context, conn *Conn, frame []byte) {
	s.dispatcher.Handle(ctx, conn, frame)
}

// HandleClose finalizes a closed connection. An abrupt closure (no prior
// disconnect message) sweeps the connection out of every room, releasing any
// channel left empty; a graceful one already did that cleanup in the
// disconnect handler.
func (s *Server) HandleClose(ctx context.Context, conn *Conn) {
	s.mu.Lock()
	delete(s.conns, conn.ID())
	s.mu.Unlock()
	s.metrics.ActiveConnections.Dec()

	if conn.Graceful() {
		s.log.Debug("connection closed", "conn", conn.ID())
		return
	}

	s.registry.LeaveAll(ctx, conn.ID())
	s.log.Debug("connection closed abruptly", "conn", conn.ID())
	s.emit(Event{Kind: EventDisconnect, ConnID: conn.ID(), Identity: conn.Identity()})
}

// Get implements ConnTable for the registry.
func (s *Server) Get(id string) (*Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.conns[id]
	return conn, ok
}

// Registry exposes the room registry, mainly for stats surfaces.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Stats returns the number of locally active rooms and connections.
func (s *Server) Stats() (rooms, conns int) {
	s.mu.RLock()
	conns = len(s.conns)
	s.mu.RUnlock()
	return s.registry.Rooms(), conns
}

func (s *Server) emit(ev Event) {
	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(ev)
	}
}
