package wsrelay

import (
	"context"
	"log/slog"
)

// Memberships reads and writes the persistent set of room names associated
// with an identity. Writes are fire-and-forget: the in-memory registry is
// always updated first, so local delivery never blocks on store latency.
type Memberships struct {
	store Store
	log   *slog.Logger
}

// NewMemberships creates a membership adapter over the backplane store.
func NewMemberships(store Store, log *slog.Logger) *Memberships {
	return &Memberships{store: store, log: log}
}

// Add records that identity declared membership in room. Store failures are
// logged, not surfaced.
func (m *Memberships) Add(ctx context.Context, identity, room string) {
	if err := m.store.AddToSet(ctx, identity, room); err != nil {
		m.log.Warn("membership add failed", "identity", identity, "room", room, "error", err)
	}
}

// Remove records that identity withdrew membership from room. Store failures
// are logged, not surfaced.
func (m *Memberships) Remove(ctx context.Context, identity, room string) {
	if err := m.store.RemoveFromSet(ctx, identity, room); err != nil {
		m.log.Warn("membership remove failed", "identity", identity, "room", room, "error", err)
	}
}

// List returns the rooms identity last declared membership in. A store
// failure degrades to an empty list so the connection proceeds with zero
// rejoined rooms instead of failing.
func (m *Memberships) List(ctx context.Context, identity string) []string {
	rooms, err := m.store.ListSet(ctx, identity)
	if err != nil {
		m.log.Warn("membership lookup failed", "identity", identity, "error", err)
		return nil
	}
	return rooms
}
