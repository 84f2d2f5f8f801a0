package wsrelay

// EventKind identifies a relay lifecycle event. The set is fixed; there are
// no dynamic event names.
type EventKind int

const (
	EventConnect EventKind = iota
	EventSubscribe
	EventUnsubscribe
	EventDisconnect
	EventMessage
)

// String returns the event kind as a string.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventSubscribe:
		return "subscribe"
	case EventUnsubscribe:
		return "unsubscribe"
	case EventDisconnect:
		return "disconnect"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is an observability notification emitted by the relay.
type Event struct {
	Kind     EventKind
	ConnID   string
	Identity string
	Room     string

	// Message carries the original inbound message for EventMessage, nil
	// for every other kind.
	Message *Message
}

// EventListener observes relay events. Listeners run synchronously on the
// connection's handling goroutine and must not block.
type EventListener func(Event)
