package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer accepts WebSocket clients, sends them payloads and closes
// each connection after the last one.
func feedServer(t *testing.T, payloads ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var accepted atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		accepted.Add(1)

		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(20 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv, &accepted
}

func TestWebSocketDialer_ReadsMessages(t *testing.T) {
	srv, _ := feedServer(t, "314", "15")
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sock, err := WebSocketDialer{}.Dial(ctx, url)
	require.NoError(t, err)
	defer sock.Close()

	_, first, err := sock.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "314", string(first))

	_, second, err := sock.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "15", string(second))

	_, _, err = sock.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestWebSocketDialer_BadURL(t *testing.T) {
	_, err := WebSocketDialer{}.Dial(context.Background(), "ws://127.0.0.1:1/none")
	assert.Error(t, err)
}

func TestManager_StreamsFromWebSocket(t *testing.T) {
	srv, accepted := feedServer(t, "12", "3")
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	m := NewManager(Options{
		Name:           "integration",
		URL:            url,
		Logger:         log.New(io.Discard),
		ReconnectDelay: 30 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return m.Queue().Len() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []rune{'1', '2', '3'}, m.Queue().PopN(3))

	// Server closes after its payloads; the manager keeps coming back
	assert.Eventually(t, func() bool {
		return accepted.Load() >= 2 && m.Status().Reconnects >= 1
	}, 2*time.Second, 5*time.Millisecond)
}
