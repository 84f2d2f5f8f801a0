package wsrelay

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsTestServer struct {
	srv    *httptest.Server
	frames chan []byte
	conns  chan *websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &wsTestServer{
		frames: make(chan []byte, 32),
		conns:  make(chan *websocket.Conn, 8),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				s.frames <- data
			}
		}()
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsTestServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a connection")
		return nil
	}
}

func (s *wsTestServer) nextFrame(t *testing.T) *Message {
	t.Helper()
	select {
	case data := <-s.frames:
		msg, err := DecodeMessage(data)
		require.NoError(t, err)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		URL:            url,
		ConnectionID:   "user-1",
		ReconnectDelay: 30 * time.Millisecond,
		Logger:         testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClient_RequiresConnectionID(t *testing.T) {
	_, err := NewClient(ClientConfig{URL: "ws://localhost/ws"})
	assert.ErrorIs(t, err, ErrEmptyIdentity)
}

func TestClient_SendsHandshakeBeforeAnythingElse(t *testing.T) {
	srv := newWSTestServer(t)
	client := newTestClient(t, srv.url())

	srv.nextConn(t)
	msg := srv.nextFrame(t)

	assert.Equal(t, TypeConnect, msg.Type)
	assert.Equal(t, client.Identity(), msg.ConnectionID)

	want, err := HashIdentity("user-1")
	require.NoError(t, err)
	assert.Equal(t, want, msg.ConnectionID)
}

func TestClient_ReconnectReplaysHandshake(t *testing.T) {
	srv := newWSTestServer(t)
	client := newTestClient(t, srv.url())

	first := srv.nextConn(t)
	handshake := srv.nextFrame(t)
	require.Equal(t, TypeConnect, handshake.Type)

	// Forced closure: the client must redial after the fixed delay and
	// replay the handshake with the same identity, no resubscribe needed.
	first.Close()

	srv.nextConn(t)
	replayed := srv.nextFrame(t)
	assert.Equal(t, TypeConnect, replayed.Type)
	assert.Equal(t, client.Identity(), replayed.ConnectionID)
}

func TestClient_RoomOperations(t *testing.T) {
	srv := newWSTestServer(t)
	client := newTestClient(t, srv.url())

	srv.nextConn(t)
	require.Equal(t, TypeConnect, srv.nextFrame(t).Type)

	require.NoError(t, client.Subscribe("lobby"))
	sub := srv.nextFrame(t)
	assert.Equal(t, TypeSubscribe, sub.Type)
	assert.Equal(t, "lobby", sub.RoomID)
	assert.False(t, sub.ID.IsZero())

	id, err := client.Send("lobby", "hello")
	require.NoError(t, err)
	sent := srv.nextFrame(t)
	assert.Equal(t, TypeMessage, sent.Type)
	assert.Equal(t, strconv.FormatInt(id, 10), sent.ID.String())
	assert.JSONEq(t, `"hello"`, string(sent.Body))

	require.NoError(t, client.Unsubscribe("lobby"))
	assert.Equal(t, TypeUnsubscribe, srv.nextFrame(t).Type)

	client.Disconnect()
	assert.Equal(t, TypeDisconnect, srv.nextFrame(t).Type)
}

func TestClient_SendAssignsIncreasingIDs(t *testing.T) {
	srv := newWSTestServer(t)
	client := newTestClient(t, srv.url())

	srv.nextConn(t)
	require.Equal(t, TypeConnect, srv.nextFrame(t).Type)

	first, err := client.Send("lobby", "a")
	require.NoError(t, err)
	second, err := client.Send("lobby", "b")
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

func TestClient_ValidatesRoomSynchronously(t *testing.T) {
	client := newTestClient(t, "ws://127.0.0.1:1/ws")

	assert.ErrorIs(t, client.Subscribe(""), ErrRoomRequired)
	assert.ErrorIs(t, client.Unsubscribe(""), ErrRoomRequired)
	_, err := client.Send("", "x")
	assert.ErrorIs(t, err, ErrRoomRequired)
}

func TestClient_DropsWritesWhileDisconnected(t *testing.T) {
	// Nothing listens on this port; the client stays in its dial loop.
	client := newTestClient(t, "ws://127.0.0.1:1/ws")

	assert.False(t, client.Connected())
	assert.NoError(t, client.Subscribe("lobby"), "writes during a reconnect gap are dropped, not errors")
	_, err := client.Send("lobby", "x")
	assert.NoError(t, err)
}

func TestClient_OnOpenRunsAfterHandshake(t *testing.T) {
	srv := newWSTestServer(t)

	opened := make(chan struct{}, 1)
	client, err := NewClient(ClientConfig{
		URL:            srv.url(),
		ConnectionID:   "user-1",
		ReconnectDelay: 30 * time.Millisecond,
		Logger:         testLogger(),
		OnOpen:         func() { opened <- struct{}{} },
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	srv.nextConn(t)
	require.Equal(t, TypeConnect, srv.nextFrame(t).Type)

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen was not invoked")
	}
}
