package client

import (
	"github.com/orchestra-mcp/presence/src/types"
)

func (m *Manager) handleInbound(h *Handle, env types.Envelope) {
	switch env.Event {
	case types.EventMessage:
		var msg types.Message
		if err := env.Decode(&msg); err != nil {
			m.logger.Warn().Err(err).Str("event", env.Event).Msg("undecodable payload")
			return
		}
		m.messages.Append(h.Identity, msg)
	case types.EventPresence:
		var p types.PresencePayload
		if err := env.Decode(&p); err != nil {
			m.logger.Warn().Err(err).Str("event", env.Event).Msg("undecodable payload")
			return
		}
		m.presence.Replace(p.Identities)
	default:
		m.logger.Debug().Str("event", env.Event).Msg("no handler")
	}
}
