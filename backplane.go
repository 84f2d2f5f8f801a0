package wsrelay

import "context"

// DeliveryFunc receives payloads published to a subscribed channel.
type DeliveryFunc func(channel string, payload []byte)

// Bus is the pub/sub half of the backplane, keyed by room name. The relay
// holds a channel subscription for a room exactly while that room has local
// members.
type Bus interface {
	// Subscribe acquires the channel subscription for a room name.
	Subscribe(ctx context.Context, channel string) error

	// Unsubscribe releases the channel subscription for a room name.
	Unsubscribe(ctx context.Context, channel string) error

	// Publish sends a payload to every process subscribed to the channel,
	// including the publishing process itself.
	Publish(ctx context.Context, channel string, payload []byte) error

	// OnDelivery sets the callback invoked for payloads arriving on
	// subscribed channels.
	OnDelivery(fn DeliveryFunc)
}

// Store is the persistent set half of the backplane, keyed by identity.
// It holds the room names each identity last declared membership in.
type Store interface {
	// AddToSet adds a member to the set at key.
	AddToSet(ctx context.Context, key, member string) error

	// RemoveFromSet removes a member from the set at key.
	RemoveFromSet(ctx context.Context, key, member string) error

	// ListSet returns all members of the set at key.
	ListSet(ctx context.Context, key string) ([]string, error)
}
