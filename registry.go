package wsrelay

import (
	"context"
	"log/slog"
	"sync"
)

// ConnTable resolves connection IDs to live connections. The registry stores
// IDs rather than connection references, so removing a connection from the
// table is enough to guarantee the registry can never deliver to a dead one.
type ConnTable interface {
	Get(id string) (*Conn, bool)
}

// Registry is the process-local mapping from room name to the connections
// currently joined here. It owns the backplane channel subscription
// lifecycle: a room's channel is subscribed exactly while its local member
// set is non-empty.
type Registry struct {
	table   ConnTable
	bus     Bus
	log     *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	rooms map[string]map[string]bool // room -> conn IDs
}

// NewRegistry creates a registry delivering through the given conn table and
// holding channel subscriptions on the given bus.
func NewRegistry(table ConnTable, bus Bus, log *slog.Logger, metrics *Metrics) *Registry {
	return &Registry{
		table:   table,
		bus:     bus,
		log:     log,
		metrics: metrics,
		rooms:   make(map[string]map[string]bool),
	}
}

// Join idempotently adds a connection to a room's local set. When the set
// transitions from empty to non-empty, the backplane channel subscription
// for the room is acquired before Join returns.
func (r *Registry) Join(ctx context.Context, room, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]bool)
		r.rooms[room] = members
	}
	members[connID] = true

	if !ok {
		r.metrics.ActiveRooms.Inc()
		if err := r.bus.Subscribe(ctx, room); err != nil {
			r.log.Error("channel subscribe failed", "room", room, "error", err)
			return err
		}
	}
	return nil
}

// Leave removes a connection from a room's local set. When the set becomes
// empty, the room entry is dropped and the backplane channel subscription is
// released.
func (r *Registry) Leave(ctx context.Context, room, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(ctx, room, connID)
}

// LeaveAll removes a connection from every room it is joined to, releasing
// any channel whose local set became empty as a result. Used on abrupt
// transport closure.
func (r *Registry) LeaveAll(ctx context.Context, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room, members := range r.rooms {
		if members[connID] {
			r.leaveLocked(ctx, room, connID)
		}
	}
}

func (r *Registry) leaveLocked(ctx context.Context, room, connID string) error {
	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	delete(members, connID)
	if len(members) > 0 {
		return nil
	}

	delete(r.rooms, room)
	r.metrics.ActiveRooms.Dec()
	if err := r.bus.Unsubscribe(ctx, room); err != nil {
		r.log.Error("channel unsubscribe failed", "room", room, "error", err)
		return err
	}
	return nil
}

// RouteIncoming is the backplane delivery callback. It writes the raw
// payload to every local member of the room. A write failure on one
// connection is logged and does not abort delivery to the rest.
func (r *Registry) RouteIncoming(room string, payload []byte) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		conn, ok := r.table.Get(id)
		if !ok {
			continue
		}
		if err := conn.Send(payload); err != nil {
			r.metrics.FanoutErrors.Inc()
			r.log.Warn("fanout write failed", "room", room, "conn", id, "error", err)
			continue
		}
		r.metrics.FanoutDeliveries.Inc()
	}
}

// Members returns the connection IDs currently joined to a room.
func (r *Registry) Members(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// Rooms returns the number of rooms with at least one local member.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
