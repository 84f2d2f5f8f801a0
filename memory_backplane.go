package wsrelay

import (
	"context"
	"sync"
)

// MemoryBackplane is an in-process implementation of Bus and Store. It
// backs single-node deployments and tests; nothing crosses a process
// boundary, but the channel-subscription and set semantics match the Redis
// backplane.
type MemoryBackplane struct {
	mu       sync.Mutex
	channels map[string]bool
	sets     map[string]map[string]bool
	delivery DeliveryFunc
}

// NewMemoryBackplane creates an empty in-process backplane.
func NewMemoryBackplane() *MemoryBackplane {
	return &MemoryBackplane{
		channels: make(map[string]bool),
		sets:     make(map[string]map[string]bool),
	}
}

// MarkReady flips all three readiness flags; the in-process backplane has no
// connections to wait for.
func (b *MemoryBackplane) MarkReady(state *ServiceState) {
	state.SetSubscriberReady(true)
	state.SetPublisherReady(true)
	state.SetStoreReady(true)
}

// OnDelivery sets the subscription delivery callback.
func (b *MemoryBackplane) OnDelivery(fn DeliveryFunc) {
	b.mu.Lock()
	b.delivery = fn
	b.mu.Unlock()
}

// Subscribe acquires the channel subscription.
func (b *MemoryBackplane) Subscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	b.channels[channel] = true
	b.mu.Unlock()
	return nil
}

// Unsubscribe releases the channel subscription.
func (b *MemoryBackplane) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	delete(b.channels, channel)
	b.mu.Unlock()
	return nil
}

// Publish delivers the payload to the subscription callback if the channel
// is subscribed. The callback runs without the backplane lock held, matching
// the asynchrony of a real bus closely enough for the relay's contract: a
// publish and its local re-delivery are never assumed synchronous by
// callers.
func (b *MemoryBackplane) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	subscribed := b.channels[channel]
	delivery := b.delivery
	b.mu.Unlock()

	if subscribed && delivery != nil {
		delivery(channel, payload)
	}
	return nil
}

// Subscribed reports whether a channel subscription is currently held.
func (b *MemoryBackplane) Subscribed(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channels[channel]
}

// AddToSet adds a member to the set at key.
func (b *MemoryBackplane) AddToSet(ctx context.Context, key, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sets[key] == nil {
		b.sets[key] = make(map[string]bool)
	}
	b.sets[key][member] = true
	return nil
}

// RemoveFromSet removes a member from the set at key.
func (b *MemoryBackplane) RemoveFromSet(ctx context.Context, key, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sets[key] != nil {
		delete(b.sets[key], member)
		if len(b.sets[key]) == 0 {
			delete(b.sets, key)
		}
	}
	return nil
}

// ListSet returns all members of the set at key.
func (b *MemoryBackplane) ListSet(ctx context.Context, key string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members := make([]string, 0, len(b.sets[key]))
	for member := range b.sets[key] {
		members = append(members, member)
	}
	return members, nil
}
