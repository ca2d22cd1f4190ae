package transport

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/orchestra-mcp/presence/src/types"
)

// CoderDialer dials the broker with coder/websocket.
type CoderDialer struct {
	handshakeTimeout time.Duration
}

// NewCoderDialer returns a dialer with the given handshake timeout.
// Set timeout to 0 to disable it.
func NewCoderDialer(handshakeTimeout time.Duration) *CoderDialer {
	return &CoderDialer{handshakeTimeout: handshakeTimeout}
}

func (d *CoderDialer) Dial(ctx context.Context, url string) (types.Conn, error) {
	dialCtx := ctx
	if d.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.handshakeTimeout)
		defer cancel()
	}

	ws, resp, err := websocket.Dial(dialCtx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &coderConn{ws: ws}, nil
}

type coderConn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
}

func (c *coderConn) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.ws, v)
}

func (c *coderConn) ReadJSON(ctx context.Context, v any) error {
	return wsjson.Read(ctx, c.ws, v)
}

// Close starts the close handshake and returns without waiting for the
// broker's reply. Calls after the first do nothing.
func (c *coderConn) Close() error {
	c.closeOnce.Do(func() {
		go func() { _ = c.ws.Close(websocket.StatusNormalClosure, "client close") }()
	})
	return nil
}
