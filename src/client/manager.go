package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/orchestra-mcp/presence/config"
	"github.com/orchestra-mcp/presence/src/messagelog"
	"github.com/orchestra-mcp/presence/src/presence"
	"github.com/orchestra-mcp/presence/src/transport"
	"github.com/orchestra-mcp/presence/src/types"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by calls made after the manager loop has exited.
var ErrStopped = errors.New("connection manager stopped")

type connectReq struct {
	identity string
	done     chan struct{}
}

type sendReq struct {
	msg  types.Message
	done chan struct{}
}

// Manager owns the single broker connection slot. All mutations of the
// slot, the presence set and the message log happen on the Run goroutine.
type Manager struct {
	cfg      *config.PresenceConfig
	dialer   transport.Dialer
	presence *presence.Tracker
	messages *messagelog.Log
	logger   zerolog.Logger

	connectCh    chan connectReq
	disconnectCh chan chan struct{}
	sendCh       chan sendReq
	events       chan handleEvent
	stop         chan struct{}
	stopped      chan struct{}
	stopOnce     sync.Once

	// current is read and written only by the Run goroutine.
	current *Handle

	mu       sync.RWMutex
	status   types.Status
	identity string
	handleID string
	since    time.Time
	onStatus []func(types.StatusEvent)
}

// New creates a connection manager. Call Run in a goroutine before use.
func New(cfg *config.PresenceConfig, dialer transport.Dialer, logger zerolog.Logger) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = config.DefaultConfig().EventBuffer
	}
	return &Manager{
		cfg:          cfg,
		dialer:       dialer,
		presence:     presence.NewTracker(),
		messages:     messagelog.New(),
		logger:       logger.With().Str("component", "connection-manager").Logger(),
		connectCh:    make(chan connectReq),
		disconnectCh: make(chan chan struct{}),
		sendCh:       make(chan sendReq),
		events:       make(chan handleEvent, buf),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Run starts the manager event loop. Call in a goroutine.
func (m *Manager) Run() {
	defer close(m.stopped)
	for {
		select {
		case req := <-m.connectCh:
			m.handleConnect(req.identity)
			close(req.done)
		case done := <-m.disconnectCh:
			m.teardown()
			close(done)
		case req := <-m.sendCh:
			m.handleSend(req.msg)
			close(req.done)
		case ev := <-m.events:
			m.handleEvent(ev)
		case <-m.stop:
			m.teardown()
			m.drain()
			return
		}
	}
}

// Stop tears down the live connection and halts the event loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Done is closed once the event loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.stopped
}

// Connect replaces any existing connection with a new one for identity.
// It returns once the previous handle is fully torn down and the new one
// is Connecting; the dial itself completes asynchronously.
func (m *Manager) Connect(ctx context.Context, identity string) error {
	done := make(chan struct{})
	select {
	case m.connectCh <- connectReq{identity: identity, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrStopped
	}
	return m.wait(ctx, done)
}

// Disconnect announces leave, closes the transport and clears presence.
// It is a no-op when no connection exists.
func (m *Manager) Disconnect(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case m.disconnectCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrStopped
	}
	return m.wait(ctx, done)
}

// SendMessage sends body from the current identity. Blank bodies and
// sends without a connected transport are dropped silently.
func (m *Manager) SendMessage(ctx context.Context, body, recipient string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	done := make(chan struct{})
	req := sendReq{msg: types.Message{Body: body, Recipient: recipient}, done: done}
	select {
	case m.sendCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		return ErrStopped
	}
	return m.wait(ctx, done)
}

func (m *Manager) wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopped:
		// The loop closes done before exiting when it accepted the request.
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// drain discards events still queued when the loop stops, closing any
// transport that was established but never adopted.
func (m *Manager) drain() {
	for {
		select {
		case ev := <-m.events:
			if ev.kind == eventEstablished && ev.conn != nil {
				_ = ev.conn.Close()
			}
		default:
			return
		}
	}
}

func (m *Manager) handleConnect(identity string) {
	m.teardown()

	h := newHandle(identity, m.events)
	m.current = h
	m.setState(types.StatusConnecting, h, nil)
	go h.run(m.dialer, m.cfg.BrokerURL)
}

// teardown closes and detaches the current handle. The leave notice is
// best-effort and bounded by LeaveTimeout. Detaching comes last because a
// detached handle closes its own transport.
func (m *Manager) teardown() {
	h := m.current
	if h == nil {
		return
	}
	m.current = nil

	if h.conn != nil {
		if err := m.write(h, types.EventLeave, types.IdentityPayload{Identity: h.Identity}, m.cfg.LeaveTimeout); err != nil {
			m.logger.Debug().Err(err).Str("handle_id", h.ID).Msg("leave not delivered")
		}
		_ = h.conn.Close()
	}
	h.detach()
	m.presence.Clear()
	m.setState(types.StatusDisconnected, nil, nil)
	m.logger.Info().Str("identity", h.Identity).Str("handle_id", h.ID).Msg("connection torn down")
}

func (m *Manager) handleEvent(ev handleEvent) {
	if ev.handle != m.current || ev.handle.detached() {
		if ev.kind == eventEstablished && ev.conn != nil {
			_ = ev.conn.Close()
		}
		m.logger.Debug().
			Str("handle_id", ev.handle.ID).
			Stringer("kind", ev.kind).
			Msg("dropping event from detached handle")
		return
	}

	switch ev.kind {
	case eventEstablished:
		m.handleEstablished(ev.handle, ev.conn)
	case eventInbound:
		m.handleInbound(ev.handle, ev.env)
	case eventLost:
		m.handleLost(ev.handle, ev.err)
	}
}

func (m *Manager) handleEstablished(h *Handle, conn types.Conn) {
	h.conn = conn
	if err := m.write(h, types.EventJoin, types.IdentityPayload{Identity: h.Identity}, m.cfg.WriteTimeout); err != nil {
		m.handleLost(h, err)
		return
	}
	m.setState(types.StatusConnected, h, nil)
}

func (m *Manager) handleLost(h *Handle, cause error) {
	m.current = nil
	if h.conn != nil {
		_ = h.conn.Close()
	}
	h.detach()
	m.presence.Clear()
	m.setState(types.StatusDisconnected, nil, cause)
	m.logger.Warn().Err(cause).
		Str("identity", h.Identity).
		Str("handle_id", h.ID).
		Msg("connection lost")
}

func (m *Manager) handleSend(msg types.Message) {
	h := m.current
	if h == nil || h.conn == nil {
		m.logger.Debug().Msg("send dropped, not connected")
		return
	}
	msg.Sender = h.Identity
	if err := m.write(h, types.EventSend, msg, m.cfg.WriteTimeout); err != nil {
		m.handleLost(h, err)
	}
}

func (m *Manager) write(h *Handle, event string, payload any, timeout time.Duration) error {
	env, err := types.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return h.conn.WriteJSON(ctx, env)
}

// setState records the new status and notifies observers on change.
// A nil handle means no connection.
func (m *Manager) setState(next types.Status, h *Handle, cause error) {
	var identity, handleID string
	var since time.Time
	if h != nil {
		identity, handleID, since = h.Identity, h.ID, h.CreatedAt
	}

	m.mu.Lock()
	old := m.status
	prevIdentity, prevHandle := m.identity, m.handleID
	m.status, m.identity, m.handleID, m.since = next, identity, handleID, since
	observers := make([]func(types.StatusEvent), len(m.onStatus))
	copy(observers, m.onStatus)
	m.mu.Unlock()

	if old == next {
		return
	}
	ev := types.StatusEvent{Old: old, New: next, Identity: identity, HandleID: handleID, Err: cause}
	if h == nil {
		ev.Identity, ev.HandleID = prevIdentity, prevHandle
	}
	m.logger.Debug().
		Stringer("old", old).
		Stringer("status", next).
		Str("identity", ev.Identity).
		Msg("status changed")
	for _, cb := range observers {
		cb(ev)
	}
}
