package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/orchestra-mcp/presence/config"
	"github.com/orchestra-mcp/presence/src/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("connection closed")

// recorder keeps one ordered trace shared by every fake connection.
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, fmt.Sprintf(format, args...))
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(r.log))
	copy(cp, r.log)
	return cp
}

// mockConn implements types.Conn without a real WebSocket.
type mockConn struct {
	n   int
	rec *recorder

	mu        sync.Mutex
	written   []types.Envelope
	closed    bool
	closedCh  chan struct{}
	failWrite bool

	inbound chan types.Envelope
}

func newMockConn(n int, rec *recorder) *mockConn {
	return &mockConn{
		n:        n,
		rec:      rec,
		closedCh: make(chan struct{}),
		inbound:  make(chan types.Envelope, 16),
	}
}

func (c *mockConn) WriteJSON(_ context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.failWrite {
		return errConnClosed
	}
	env := v.(types.Envelope)
	c.written = append(c.written, env)
	c.rec.add("conn%d:%s:%s", c.n, env.Event, actor(env))
	return nil
}

func (c *mockConn) ReadJSON(ctx context.Context, v any) error {
	select {
	case env := <-c.inbound:
		*(v.(*types.Envelope)) = env
		return nil
	case <-c.closedCh:
		return errConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
		c.rec.add("conn%d:close", c.n)
	}
	return nil
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *mockConn) getWritten() []types.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]types.Envelope, len(c.written))
	copy(cp, c.written)
	return cp
}

func (c *mockConn) push(t *testing.T, event string, payload any) {
	t.Helper()
	env, err := types.NewEnvelope(event, payload)
	require.NoError(t, err)
	c.inbound <- env
}

func actor(env types.Envelope) string {
	switch env.Event {
	case types.EventJoin, types.EventLeave:
		var p types.IdentityPayload
		_ = env.Decode(&p)
		return p.Identity
	case types.EventSend:
		var msg types.Message
		_ = env.Decode(&msg)
		return msg.Sender
	default:
		return ""
	}
}

// mockDialer hands out a new mockConn per dial.
type mockDialer struct {
	rec *recorder

	// gate, when set, holds every dial until it is closed.
	gate chan struct{}
	// ignoreCancel makes a gated dial finish even if its context is cancelled.
	ignoreCancel bool
	// failWrites makes every new connection reject writes.
	failWrites bool
	err        error

	mu    sync.Mutex
	conns []*mockConn
}

func newMockDialer() *mockDialer {
	return &mockDialer{rec: &recorder{}}
}

func (d *mockDialer) Dial(ctx context.Context, _ string) (types.Conn, error) {
	if !d.ignoreCancel && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if d.gate != nil {
		if d.ignoreCancel {
			<-d.gate
		} else {
			select {
			case <-d.gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if d.err != nil {
		return nil, d.err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	conn := newMockConn(len(d.conns)+1, d.rec)
	conn.failWrite = d.failWrites
	d.conns = append(d.conns, conn)
	d.rec.add("dial%d", conn.n)
	return conn, nil
}

func (d *mockDialer) getConns() []*mockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]*mockConn, len(d.conns))
	copy(cp, d.conns)
	return cp
}

func (d *mockDialer) conn(t *testing.T, n int) *mockConn {
	t.Helper()
	var c *mockConn
	require.Eventually(t, func() bool {
		conns := d.getConns()
		if len(conns) < n {
			return false
		}
		c = conns[n-1]
		return true
	}, time.Second, 5*time.Millisecond)
	return c
}

func (d *mockDialer) liveConns() int {
	live := 0
	for _, c := range d.getConns() {
		if !c.isClosed() {
			live++
		}
	}
	return live
}

// newTestManager creates a manager and starts its event loop.
func newTestManager(t *testing.T, d *mockDialer) *Manager {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BrokerURL = "ws://broker.test/ws"
	m := New(cfg, d, testLogger())
	go m.Run()
	t.Cleanup(func() {
		m.Stop()
		<-m.Done()
	})
	return m
}

func waitStatus(t *testing.T, m *Manager, want types.Status) {
	t.Helper()
	require.Eventually(t, func() bool { return m.Status() == want },
		time.Second, 5*time.Millisecond, "status never reached %s", want)
}

// statusLog collects lifecycle transitions.
type statusLog struct {
	mu     sync.Mutex
	events []types.StatusEvent
}

func (s *statusLog) record(ev types.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *statusLog) transitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Old.String() + "->" + ev.New.String()
	}
	return out
}

func (s *statusLog) last() types.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
