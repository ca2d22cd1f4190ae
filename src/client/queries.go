package client

import (
	"time"

	"github.com/orchestra-mcp/presence/src/messagelog"
	"github.com/orchestra-mcp/presence/src/presence"
	"github.com/orchestra-mcp/presence/src/types"
)

// Info is a point-in-time view of the manager. Since is when the live
// handle was created and is zero without one.
type Info struct {
	Status   string    `json:"status"`
	Identity string    `json:"identity,omitempty"`
	HandleID string    `json:"handle_id,omitempty"`
	Since    time.Time `json:"since,omitzero"`
	Online   int       `json:"online"`
	Messages int       `json:"messages"`
}

// OnStatus registers a callback for lifecycle transitions. Callbacks run
// on the event loop and must not call back into the manager.
func (m *Manager) OnStatus(cb func(types.StatusEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatus = append(m.onStatus, cb)
}

// Status returns the current connection status.
func (m *Manager) Status() types.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Identity returns the identity bound to the live handle, or "".
func (m *Manager) Identity() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// HandleID returns the ID of the live handle, or "".
func (m *Manager) HandleID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handleID
}

// Presence returns the tracker fed by presence broadcasts.
func (m *Manager) Presence() *presence.Tracker { return m.presence }

// Messages returns the log fed by inbound messages.
func (m *Manager) Messages() *messagelog.Log { return m.messages }

// Info returns a snapshot for status surfaces.
func (m *Manager) Info() Info {
	m.mu.RLock()
	info := Info{
		Status:   m.status.String(),
		Identity: m.identity,
		HandleID: m.handleID,
		Since:    m.since,
	}
	m.mu.RUnlock()
	info.Online = m.presence.Count()
	info.Messages = m.messages.Len()
	return info
}
