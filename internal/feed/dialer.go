package feed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Socket is an open feed connection. ReadMessage blocks until a message
// arrives or the socket fails; Close unblocks it.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens feed connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// WebSocketDialer dials feeds over WebSocket.
type WebSocketDialer struct {
	Dialer *websocket.Dialer // nil uses websocket.DefaultDialer
	Header http.Header
}

// Dial opens a WebSocket connection to url.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}
