package wsrelay

import (
	"context"
	"log/slog"
)

// Publisher fans outbound room messages onto the backplane bus. There is no
// local short-circuit: the publishing process receives the message back
// through its own channel subscription like every other process, keeping a
// single delivery code path regardless of sender locality.
type Publisher struct {
	bus     Bus
	log     *slog.Logger
	metrics *Metrics
}

// NewPublisher creates a publisher over the backplane bus.
func NewPublisher(bus Bus, log *slog.Logger, metrics *Metrics) *Publisher {
	return &Publisher{bus: bus, log: log, metrics: metrics}
}

// Publish forwards the payload verbatim to the channel named by room.
func (p *Publisher) Publish(ctx context.Context, room string, payload []byte) error {
	if err := p.bus.Publish(ctx, room, payload); err != nil {
		p.log.Error("publish failed", "room", room, "error", err)
		return err
	}
	p.metrics.MessagesPublished.Inc()
	return nil
}
