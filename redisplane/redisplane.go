// Package redisplane implements the relay backplane on Redis: channel
// pub/sub for room fanout and sets for persisted per-identity membership.
//
// Three dedicated connections are held, mirroring the roles the relay's
// readiness gate tracks: a subscriber (pub/sub receive), a publisher, and a
// store client. Each is health-checked continuously and its availability is
// reported to the relay's readiness state.
package redisplane

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramory-l/wsrelay"
)

// ReadinessSink receives availability transitions for the three backplane
// connections. *wsrelay.ServiceState satisfies it.
type ReadinessSink interface {
	SetSubscriberReady(bool)
	SetPublisherReady(bool)
	SetStoreReady(bool)
}

// Config configures the Redis backplane.
type Config struct {
	Addr     string
	Password string
	DB       int

	// PingInterval is the health-check period for each connection.
	// Defaults to 2 seconds.
	PingInterval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Plane is a Redis-backed implementation of wsrelay.Bus and wsrelay.Store.
type Plane struct {
	subscriber *redis.Client
	publisher  *redis.Client
	store      *redis.Client
	interval   time.Duration
	log        *slog.Logger

	mu       sync.Mutex
	pubsub   *redis.PubSub
	delivery wsrelay.DeliveryFunc
}

// New creates a backplane over three Redis connections. Call Start before
// handing the plane to a relay server.
func New(cfg Config) *Plane {
	opts := func() *redis.Options {
		return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}

	interval := cfg.PingInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Plane{
		subscriber: redis.NewClient(opts()),
		publisher:  redis.NewClient(opts()),
		store:      redis.NewClient(opts()),
		interval:   interval,
		log:        log,
	}
}

// Start opens the pub/sub stream and begins health-checking the three
// connections, reporting transitions to sink. It returns once the stream is
// established; readiness flags flip as the first health checks complete.
func (p *Plane) Start(ctx context.Context, sink ReadinessSink) {
	p.mu.Lock()
	p.pubsub = p.subscriber.Subscribe(ctx)
	ch := p.pubsub.Channel()
	p.mu.Unlock()

	go p.receive(ch)

	go p.monitor(ctx, p.subscriber, "subscriber", sink.SetSubscriberReady)
	go p.monitor(ctx, p.publisher, "publisher", sink.SetPublisherReady)
	go p.monitor(ctx, p.store, "store", sink.SetStoreReady)
}

// Close tears down the pub/sub stream and all three connections.
func (p *Plane) Close() error {
	p.mu.Lock()
	pubsub := p.pubsub
	p.mu.Unlock()

	if pubsub != nil {
		pubsub.Close()
	}
	p.subscriber.Close()
	p.publisher.Close()
	return p.store.Close()
}

// OnDelivery implements wsrelay.Bus.
func (p *Plane) OnDelivery(fn wsrelay.DeliveryFunc) {
	p.mu.Lock()
	p.delivery = fn
	p.mu.Unlock()
}

// Subscribe implements wsrelay.Bus.
func (p *Plane) Subscribe(ctx context.Context, channel string) error {
	p.mu.Lock()
	pubsub := p.pubsub
	p.mu.Unlock()
	return pubsub.Subscribe(ctx, channel)
}

// Unsubscribe implements wsrelay.Bus.
func (p *Plane) Unsubscribe(ctx context.Context, channel string) error {
	p.mu.Lock()
	pubsub := p.pubsub
	p.mu.Unlock()
	return pubsub.Unsubscribe(ctx, channel)
}

// Publish implements wsrelay.Bus.
func (p *Plane) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.publisher.Publish(ctx, channel, payload).Err()
}

// AddToSet implements wsrelay.Store.
func (p *Plane) AddToSet(ctx context.Context, key, member string) error {
	return p.store.SAdd(ctx, key, member).Err()
}

// RemoveFromSet implements wsrelay.Store.
func (p *Plane) RemoveFromSet(ctx context.Context, key, member string) error {
	return p.store.SRem(ctx, key, member).Err()
}

// ListSet implements wsrelay.Store.
func (p *Plane) ListSet(ctx context.Context, key string) ([]string, error) {
	return p.store.SMembers(ctx, key).Result()
}

func (p *Plane) receive(ch <-chan *redis.Message) {
	for msg := range ch {
		p.mu.Lock()
		delivery := p.delivery
		p.mu.Unlock()
		if delivery != nil {
			delivery(msg.Channel, []byte(msg.Payload))
		}
	}
}

// monitor pings one connection on a fixed interval and reports availability
// transitions, the Go rendition of the original's ready/end events.
func (p *Plane) monitor(ctx context.Context, client *redis.Client, role string, set func(bool)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	ready := false
	check := func() {
		err := client.Ping(ctx).Err()
		ok := err == nil
		if ok != ready {
			ready = ok
			set(ok)
			if ok {
				p.log.Info("backplane connection ready", "role", role)
			} else {
				p.log.Warn("backplane connection lost", "role", role, "error", err)
			}
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			set(false)
			return
		case <-ticker.C:
			check()
		}
	}
}
