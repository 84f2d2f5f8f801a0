package wsrelay

import (
	"context"
	"log/slog"
)

// Dispatcher implements the relay's per-connection protocol state machine.
// It parses inbound frames, enforces the readiness gate, routes each typed
// message to its handler, and acknowledges every successfully parsed frame.
type Dispatcher struct {
	registry    *Registry
	memberships *Memberships
	publisher   *Publisher
	state       *ServiceState
	log         *slog.Logger
	metrics     *Metrics
	notify      func(Event)
}

// NewDispatcher wires a dispatcher to its collaborators. notify receives the
// observability events; it may be nil.
func NewDispatcher(registry *Registry, memberships *Memberships, publisher *Publisher,
	state *ServiceState, log *slog.Logger, metrics *Metrics, notify func(Event)) *Dispatcher {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Dispatcher{
		registry:    registry,
		memberships: memberships,
		publisher:   publisher,
		state:       state,
		log:         log,
		metrics:     metrics,
		notify:      notify,
	}
}

// Handle processes one inbound text frame for conn.
//
// While any backplane service is unavailable every frame, well-formed or
// not, is answered with a structured error and otherwise dropped. Malformed
// frames are logged and produce no reply. A parsed message whose required
// field is missing changes no state but is still acknowledged, matching the
// original protocol's no-op-but-acknowledged behavior.
func (d *Dispatcher) Handle(ctx context.Context, conn *Conn, frame []byte) {
	if !d.state.Ready() {
		d.metrics.FramesRejected.Inc()
		d.reply(conn, errorMessage("Internal server error"))
		return
	}

	msg, err := DecodeMessage(frame)
	if err != nil {
		d.metrics.InvalidFrames.Inc()
		d.log.Warn("invalid frame", "conn", conn.ID(), "error", err)
		return
	}
	d.metrics.MessagesReceived.Inc()

	switch msg.Type {
	case TypeConnect:
		d.handleConnect(ctx, conn, msg)
	case TypeSubscribe:
		d.handleSubscribe(ctx, conn, msg)
	case TypeUnsubscribe:
		d.handleUnsubscribe(ctx, conn, msg)
	case TypeDisconnect:
		d.handleDisconnect(ctx, conn)
	case TypeMessage:
		d.handleMessage(ctx, conn, msg)
	}

	d.metrics.AcksSent.Inc()
	d.reply(conn, ackMessage(msg.ID))
}

// handleConnect binds the identity supplied by the client and rejoins every
// room the identity last declared membership in.
func (d *Dispatcher) handleConnect(ctx context.Context, conn *Conn, msg *Message) {
	if msg.ConnectionID == "" {
		return
	}
	conn.SetIdentity(msg.ConnectionID)

	for _, room := range d.memberships.List(ctx, conn.Identity()) {
		d.registry.Join(ctx, room, conn.ID())
	}

	d.log.Debug("connection bound", "conn", conn.ID(), "identity", conn.Identity())
	d.notify(Event{Kind: EventConnect, ConnID: conn.ID(), Identity: conn.Identity()})
}

func (d *Dispatcher) handleSubscribe(ctx context.Context, conn *Conn, msg *Message) {
	if msg.RoomID == "" {
		return
	}
	d.registry.Join(ctx, msg.RoomID, conn.ID())
	d.memberships.Add(ctx, conn.Identity(), msg.RoomID)

	d.notify(Event{Kind: EventSubscribe, ConnID: conn.ID(), Identity: conn.Identity(), Room: msg.RoomID})
}

func (d *Dispatcher) handleUnsubscribe(ctx context.Context, conn *Conn, msg *Message) {
	if msg.RoomID == "" {
		return
	}
	d.registry.Leave(ctx, msg.RoomID, conn.ID())
	d.memberships.Remove(ctx, conn.Identity(), msg.RoomID)

	d.notify(Event{Kind: EventUnsubscribe, ConnID: conn.ID(), Identity: conn.Identity(), Room: msg.RoomID})
}

// handleDisconnect leaves every locally-known room for the identity and
// marks the close as graceful. The persisted membership set is left intact
// so a later connect can rejoin; closing the transport is the caller's
// responsibility.
func (d *Dispatcher) handleDisconnect(ctx context.Context, conn *Conn) {
	for _, room := range d.memberships.List(ctx, conn.Identity()) {
		d.registry.Leave(ctx, room, conn.ID())
	}
	conn.MarkGraceful()

	d.notify(Event{Kind: EventDisconnect, ConnID: conn.ID(), Identity: conn.Identity()})
}

// handleMessage republishes a room message on the backplane. The outbound
// value is built explicitly with only the wire fields, dropping the
// per-connection messageID. Local members are not written to here; delivery
// happens solely through the channel subscription callback.
func (d *Dispatcher) handleMessage(ctx context.Context, conn *Conn, msg *Message) {
	if msg.RoomID == "" {
		return
	}

	outbound := Message{
		Type:   TypeMessage,
		RoomID: msg.RoomID,
		Body:   msg.Body,
	}
	payload, err := outbound.Encode()
	if err != nil {
		d.log.Error("encode outbound message failed", "conn", conn.ID(), "error", err)
		return
	}
	d.publisher.Publish(ctx, msg.RoomID, payload)

	d.notify(Event{Kind: EventMessage, ConnID: conn.ID(), Identity: conn.Identity(), Room: msg.RoomID, Message: msg})
}

func (d *Dispatcher) reply(conn *Conn, msg *Message) {
	payload, err := msg.Encode()
	if err != nil {
		d.log.Error("encode reply failed", "conn", conn.ID(), "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		d.log.Warn("reply write failed", "conn", conn.ID(), "error", err)
	}
}
