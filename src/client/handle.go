package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orchestra-mcp/presence/src/transport"
	"github.com/orchestra-mcp/presence/src/types"
)

type eventKind int

const (
	eventEstablished eventKind = iota
	eventInbound
	eventLost
)

func (k eventKind) String() string {
	switch k {
	case eventEstablished:
		return "established"
	case eventInbound:
		return "inbound"
	case eventLost:
		return "lost"
	default:
		return "unknown"
	}
}

// handleEvent is posted by a handle's goroutine to the manager loop.
type handleEvent struct {
	handle *Handle
	kind   eventKind
	conn   types.Conn     // eventEstablished
	env    types.Envelope // eventInbound
	err    error          // eventLost
}

// Handle is one broker connection bound to one identity.
type Handle struct {
	ID        string
	Identity  string
	CreatedAt time.Time

	// conn is set by the manager loop once the transport is established
	// and only touched from that goroutine.
	conn types.Conn

	ctx    context.Context
	cancel context.CancelFunc
	sink   chan<- handleEvent
}

func newHandle(identity string, sink chan<- handleEvent) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handle{
		ID:        uuid.New().String(),
		Identity:  identity,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		sink:      sink,
	}
}

// run dials the broker and then pumps inbound frames until the transport
// fails or the handle is detached. The transport is closed once the handle
// is detached, whether or not the manager ever adopted it.
func (h *Handle) run(d transport.Dialer, url string) {
	conn, err := d.Dial(h.ctx, url)
	if err != nil {
		h.post(handleEvent{kind: eventLost, err: err})
		return
	}
	context.AfterFunc(h.ctx, func() { _ = conn.Close() })

	if !h.post(handleEvent{kind: eventEstablished, conn: conn}) {
		return
	}
	h.readPump(conn)
}

func (h *Handle) readPump(conn types.Conn) {
	for {
		var env types.Envelope
		if err := conn.ReadJSON(h.ctx, &env); err != nil {
			h.post(handleEvent{kind: eventLost, err: err})
			return
		}
		if !h.post(handleEvent{kind: eventInbound, env: env}) {
			return
		}
	}
}

// post delivers ev to the manager. It reports false once the handle has
// been detached; nothing is delivered after that.
func (h *Handle) post(ev handleEvent) bool {
	if h.ctx.Err() != nil {
		return false
	}
	ev.handle = h
	select {
	case h.sink <- ev:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// detach unregisters the handle from the manager.
func (h *Handle) detach() {
	h.cancel()
}

func (h *Handle) detached() bool {
	return h.ctx.Err() != nil
}
