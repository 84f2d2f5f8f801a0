package transport

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTransport struct {
	url    string
	frames chan []byte
	closed chan string
}

func newTestTransport(t *testing.T) *testTransport {
	t.Helper()
	tt := &testTransport{
		frames: make(chan []byte, 8),
		closed: make(chan string, 1),
	}

	ts := NewServer(nil, slog.New(slog.DiscardHandler))
	ts.OnConnect(func(s *Session) {
		s.OnMessage(func(data []byte) { tt.frames <- data })
		s.OnClose(func(reason string) { tt.closed <- reason })
	})

	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)
	t.Cleanup(ts.Close)
	tt.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return tt
}

func (tt *testTransport) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(tt.url, nil)
	require.NoError(t, err)
	return conn
}

func (tt *testTransport) nextFrame(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-tt.frames:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

func TestSession_DeliversTextFrames(t *testing.T) {
	tt := newTestTransport(t)
	conn := tt.dial(t)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	assert.Equal(t, []byte("hello"), tt.nextFrame(t))
}

func TestSession_RejectsBinaryFrames(t *testing.T) {
	tt := newTestTransport(t)
	conn := tt.dial(t)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("after")))

	// The binary frame is dropped; the next delivered frame is the text one.
	assert.Equal(t, []byte("after"), tt.nextFrame(t))
}

func TestSession_CloseCallbackFiresOnClientClose(t *testing.T) {
	tt := newTestTransport(t)
	conn := tt.dial(t)

	conn.Close()

	select {
	case <-tt.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close handler was not invoked")
	}
}

func TestSession_SendReachesClient(t *testing.T) {
	sessions := make(chan *Session, 1)
	ts := NewServer(nil, slog.New(slog.DiscardHandler))
	ts.OnConnect(func(s *Session) { sessions <- s })
	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var sess *Session
	select {
	case sess = <-sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("no session accepted")
	}

	require.NoError(t, sess.Send([]byte("payload")))

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Equal(t, []byte("payload"), data)
}
