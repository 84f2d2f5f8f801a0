// Package wsrelay implements a bidirectional message relay: many websocket
// clients join named rooms and exchange messages, with delivery fanned out
// across relay processes through a shared backplane (a pub/sub bus keyed by
// room name plus a persistent membership store keyed by identity).
//
// # Features
//
//   - Rooms for grouping connections, with process-local fanout
//   - Horizontal scale-out over a Redis backplane (see redisplane)
//   - Persisted per-identity membership, rejoined on reconnect
//   - Readiness gating on the backplane's three connections
//   - Per-message acknowledgments
//   - Auto-reconnecting client with handshake replay
//   - Prometheus instrumentation
//
// # Server
//
//	plane := redisplane.New(redisplane.Config{Addr: "localhost:6379"})
//	relay := wsrelay.NewServer(wsrelay.Config{Bus: plane, Store: plane})
//	plane.Start(ctx, relay.State())
//
//	ts := transport.NewServer(nil, slog.Default())
//	ts.OnConnect(func(sess *transport.Session) {
//	    conn := relay.Accept(ctx, sess)
//	    sess.OnMessage(func(data []byte) { relay.HandleFrame(ctx, conn, data) })
//	    sess.OnClose(func(string) { relay.HandleClose(ctx, conn) })
//	})
//	http.Handle("/ws", ts)
//
// # Client
//
//	client, err := wsrelay.NewClient(wsrelay.ClientConfig{
//	    URL:          "ws://localhost:8080/ws",
//	    ConnectionID: "user-42",
//	    OnMessage:    func(payload []byte) { log.Printf("got %s", payload) },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.Subscribe("lobby")
//	client.Send("lobby", "hello")
//
// The client reconnects with a fixed delay after any transport closure and
// replays the connect handshake, so the server rejoins persisted rooms
// without a new subscribe call. Room operations are fire-and-forget: while
// no transport is open, writes are dropped, not queued.
//
// # Wire protocol
//
// Frames are JSON text:
//
//	{ "messageID": 7, "type": "subscribe", "roomID": "lobby" }
//
// Types are connect, subscribe, unsubscribe, disconnect and message; the
// server replies with ack (echoing the messageID) or error. Message IDs are
// unique within one connection's lifetime only. Binary frames are rejected.
//
// # Delivery semantics
//
// Room messages travel through the backplane even for members local to the
// publishing process, keeping one delivery path regardless of sender
// locality. Delivery is at-least-once and best-effort: there is no global
// ordering across rooms and no deduplication.
package wsrelay
