package providers

import (
	"context"
	"errors"
	"time"

	"github.com/orchestra-mcp/presence/config"
	"github.com/orchestra-mcp/presence/src/client"
	"github.com/orchestra-mcp/presence/src/session"
	"github.com/orchestra-mcp/presence/src/store"
	"github.com/orchestra-mcp/presence/src/transport"
	"github.com/rs/zerolog"
)

// PresencePlugin wires the presence client into the dashboard host.
type PresencePlugin struct {
	active  bool
	cfg     *config.PresenceConfig
	logger  zerolog.Logger
	dialer  transport.Dialer
	store   store.IdentityStore
	redis   *store.RedisStore
	manager *client.Manager
	gate    *session.Gate
}

// NewPresencePlugin creates a new presence plugin instance.
func NewPresencePlugin(cfg *config.PresenceConfig, logger zerolog.Logger) *PresencePlugin {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &PresencePlugin{cfg: cfg, logger: logger}
}

func (p *PresencePlugin) ID() string      { return "clinic/presence" }
func (p *PresencePlugin) Name() string    { return "Presence" }
func (p *PresencePlugin) Version() string { return "0.1.0" }
func (p *PresencePlugin) IsActive() bool  { return p.active }

// SetDialer overrides the transport selected by the config.
// Must be called before Activate.
func (p *PresencePlugin) SetDialer(d transport.Dialer) {
	p.dialer = d
}

// SetStore overrides the session store selected by the config.
// Must be called before Activate.
func (p *PresencePlugin) SetStore(st store.IdentityStore) {
	p.store = st
}

// Activate builds the connection manager and session gate, starts the
// event loop and restores any persisted session.
func (p *PresencePlugin) Activate(ctx context.Context) error {
	if p.active {
		return errors.New("presence plugin already active")
	}
	if p.dialer == nil {
		d, err := transport.New(p.cfg)
		if err != nil {
			return err
		}
		p.dialer = d
	}
	if p.store == nil {
		p.store = p.initStore(ctx)
	}

	p.manager = client.New(p.cfg, p.dialer, p.logger)
	go p.manager.Run()
	p.gate = session.New(p.manager, p.store, p.logger)

	// Restore failures leave the gate logged out.
	if err := p.gate.Restore(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("session restore failed")
	}

	p.active = true
	p.logger.Info().
		Str("plugin", p.ID()).
		Str("broker", p.cfg.BrokerURL).
		Str("transport", p.cfg.Transport).
		Msg("presence plugin activated")
	return nil
}

// initStore tries the Redis session store when configured.
// If Redis is not reachable, sessions are kept in memory.
func (p *PresencePlugin) initStore(ctx context.Context) store.IdentityStore {
	if p.cfg.Store != config.StoreRedis {
		return store.NewMemoryStore()
	}

	cfg := store.RedisConfigFromEnv()
	rs := store.NewRedisStore(cfg, p.logger)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		p.logger.Warn().Err(err).Msg("redis store unavailable, keeping sessions in memory")
		_ = rs.Close()
		return store.NewMemoryStore()
	}

	p.redis = rs
	p.logger.Info().Str("redis_addr", cfg.Addr).Msg("redis session store connected")
	return rs
}

// Deactivate tears down the live connection and stops the event loop.
// The persisted session is kept so the next start restores it.
func (p *PresencePlugin) Deactivate() error {
	if !p.active {
		return nil
	}
	if p.manager != nil {
		p.manager.Stop()
		select {
		case <-p.manager.Done():
		case <-time.After(p.cfg.LeaveTimeout + time.Second):
			p.logger.Warn().Msg("connection manager did not stop in time")
		}
	}
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			p.logger.Error().Err(err).Msg("redis store close error")
		}
		p.redis = nil
	}
	p.active = false
	return nil
}

// Gate returns the session gate. Nil before Activate.
func (p *PresencePlugin) Gate() *session.Gate { return p.gate }

// Manager returns the connection manager. Nil before Activate.
func (p *PresencePlugin) Manager() *client.Manager { return p.manager }
