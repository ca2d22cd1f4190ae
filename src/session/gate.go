package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/orchestra-mcp/presence/src/store"
	"github.com/rs/zerolog"
)

// ErrEmptyIdentity is returned when logging in without an identity.
var ErrEmptyIdentity = errors.New("identity is required")

// Connector is the part of the connection manager the gate drives.
type Connector interface {
	Connect(ctx context.Context, identity string) error
	Disconnect(ctx context.Context) error
	SendMessage(ctx context.Context, body, recipient string) error
}

// State is the gate's view of the login lifecycle.
type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Gate binds the presence connection to the application's auth lifecycle.
// It is the only caller of Connect and Disconnect.
type Gate struct {
	conn   Connector
	store  store.IdentityStore
	logger zerolog.Logger

	mu       sync.Mutex
	identity string
	fields   map[string]string
}

// New creates a gate over conn, persisting the identity in st.
func New(conn Connector, st store.IdentityStore, logger zerolog.Logger) *Gate {
	return &Gate{
		conn:   conn,
		store:  st,
		logger: logger.With().Str("component", "session-gate").Logger(),
	}
}

// Login connects, then sets and persists the identity. A live connection
// for a previous identity is replaced. When Connect fails the gate keeps
// its previous identity and nothing is persisted.
func (g *Gate) Login(ctx context.Context, identity string) error {
	return g.LoginSession(ctx, store.Session{Identity: identity})
}

// LoginSession is Login with extra session fields to persist alongside
// the identity.
func (g *Gate) LoginSession(ctx context.Context, sess store.Session) error {
	sess.Identity = strings.TrimSpace(sess.Identity)
	if sess.Identity == "" {
		return ErrEmptyIdentity
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.login(ctx, sess, true)
}

func (g *Gate) login(ctx context.Context, sess store.Session, persist bool) error {
	if err := g.conn.Connect(ctx, sess.Identity); err != nil {
		return fmt.Errorf("connect %s: %w", sess.Identity, err)
	}
	g.identity = sess.Identity
	g.fields = sess.Fields

	if persist {
		if err := g.store.Save(ctx, sess); err != nil {
			// Persisting is best-effort; the session still connects.
			g.logger.Warn().Err(err).Str("identity", sess.Identity).Msg("session not persisted")
		}
	}
	g.logger.Info().Str("identity", sess.Identity).Msg("logged in")
	return nil
}

// Logout disconnects, clears the identity and the persisted session.
// Logging out while logged out is a no-op.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.identity == "" {
		return nil
	}
	identity := g.identity

	if err := g.conn.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect %s: %w", identity, err)
	}
	g.identity = ""
	g.fields = nil
	if err := g.store.Clear(ctx); err != nil {
		g.logger.Warn().Err(err).Str("identity", identity).Msg("persisted session not cleared")
	}
	g.logger.Info().Str("identity", identity).Msg("logged out")
	return nil
}

// Restore logs in with the persisted session, if any. It is safe to call
// more than once and concurrently with Login. An identity that is already
// logged in wins over the persisted one.
func (g *Gate) Restore(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.identity != "" {
		g.logger.Debug().Str("identity", g.identity).Msg("already logged in, restore skipped")
		return nil
	}
	sess, ok, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	sess.Identity = strings.TrimSpace(sess.Identity)
	if !ok || sess.Identity == "" {
		g.logger.Debug().Msg("no session to restore")
		return nil
	}

	g.logger.Info().Str("identity", sess.Identity).Msg("restoring session")
	return g.login(ctx, sess, false)
}

// Send sends body from the logged-in identity. It is dropped when logged out.
func (g *Gate) Send(ctx context.Context, body, recipient string) error {
	return g.conn.SendMessage(ctx, body, recipient)
}

// Identity returns the logged-in identity, or "".
func (g *Gate) Identity() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity
}

// Field returns a session field attached at login.
func (g *Gate) Field(key string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.fields[key]
	return v, ok
}

// State reports whether an identity is logged in.
func (g *Gate) State() State {
	if g.Identity() == "" {
		return LoggedOut
	}
	return LoggedIn
}

// LoggedIn reports whether an identity is logged in.
func (g *Gate) LoggedIn() bool {
	return g.State() == LoggedIn
}
