package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Session is the persisted login slot. Fields carries any extra session
// attributes the surrounding application attaches.
type Session struct {
	Identity string            `json:"identity"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// IdentityStore reads and writes the currently authenticated identity.
type IdentityStore interface {
	// Load returns the persisted session and whether one exists.
	Load(ctx context.Context) (Session, bool, error)

	// Save replaces the persisted session.
	Save(ctx context.Context, s Session) error

	// Clear deletes the persisted session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

var errEmptyIdentity = errors.New("session has no identity")

func encodeSession(s Session) ([]byte, error) {
	if s.Identity == "" {
		return nil, errEmptyIdentity
	}
	return json.Marshal(s)
}

func decodeSession(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, err
	}
	if s.Identity == "" {
		return Session{}, errEmptyIdentity
	}
	return s, nil
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false, nil
	}
	return cloneSession(*m.session), true, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if s.Identity == "" {
		return errEmptyIdentity
	}
	c := cloneSession(s)
	m.mu.Lock()
	m.session = &c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return nil
}

func cloneSession(s Session) Session {
	if s.Fields == nil {
		return s
	}
	fields := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	s.Fields = fields
	return s
}
