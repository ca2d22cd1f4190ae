package transport

import (
	"context"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/orchestra-mcp/presence/src/types"
)

// FastHTTPDialer dials the broker with fasthttp/websocket.
type FastHTTPDialer struct {
	dialer *websocket.Dialer
}

// NewFastHTTPDialer returns a dialer with the given handshake timeout.
func NewFastHTTPDialer(handshakeTimeout time.Duration) *FastHTTPDialer {
	return &FastHTTPDialer{dialer: &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}}
}

func (d *FastHTTPDialer) Dial(ctx context.Context, url string) (types.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &fasthttpConn{conn: conn}, nil
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
// Context deadlines become socket deadlines. Close is idempotent.
type fasthttpConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (f *fasthttpConn) WriteJSON(ctx context.Context, v any) error {
	dl, _ := ctx.Deadline()
	if err := f.conn.SetWriteDeadline(dl); err != nil {
		return err
	}
	return f.conn.WriteJSON(v)
}

func (f *fasthttpConn) ReadJSON(ctx context.Context, v any) error {
	dl, _ := ctx.Deadline()
	if err := f.conn.SetReadDeadline(dl); err != nil {
		return err
	}
	return f.conn.ReadJSON(v)
}

func (f *fasthttpConn) Close() error {
	f.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client close")
		_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		f.closeErr = f.conn.Close()
	})
	return f.closeErr
}
