package transport

import (
	"context"
	"fmt"

	"github.com/orchestra-mcp/presence/config"
	"github.com/orchestra-mcp/presence/src/types"
)

// Dialer opens a connection to the broker.
type Dialer interface {
	Dial(ctx context.Context, url string) (types.Conn, error)
}

// New returns the dialer selected by cfg.Transport.
func New(cfg *config.PresenceConfig) (Dialer, error) {
	switch cfg.Transport {
	case config.TransportFastHTTP, "":
		return NewFastHTTPDialer(cfg.HandshakeTimeout), nil
	case config.TransportCoder:
		return NewCoderDialer(cfg.HandshakeTimeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
