package providers

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/orchestra-mcp/presence/src/types"
)

// RegisterRoutes registers the presence status routes via Fiber.
func (p *PresencePlugin) RegisterRoutes(group fiber.Router) {
	group.Get("/presence/info", p.handleInfo)
	group.Get("/presence/online", p.handleOnline)
	group.Get("/presence/messages", p.handleMessages)
	group.Post("/presence/messages", p.handleSend)
}

func (p *PresencePlugin) handleInfo(c fiber.Ctx) error {
	info := p.manager.Info()
	return c.JSON(fiber.Map{
		"session":   p.gate.State().String(),
		"identity":  p.gate.Identity(),
		"status":    info.Status,
		"handle_id": info.HandleID,
		"since":     info.Since,
		"online":    info.Online,
		"messages":  info.Messages,
	})
}

func (p *PresencePlugin) handleOnline(c fiber.Ctx) error {
	online := p.manager.Presence().Online()
	return c.JSON(fiber.Map{
		"online": online,
		"count":  len(online),
	})
}

// handleMessages lists the current identity's messages after the
// sequence number given in ?after=.
func (p *PresencePlugin) handleMessages(c fiber.Ctx) error {
	var after uint64
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "after must be a non-negative integer",
			})
		}
		after = n
	}

	entries := p.manager.Messages().For(p.gate.Identity(), after)
	return c.JSON(fiber.Map{
		"messages": entries,
		"count":    len(entries),
	})
}

type sendRequest struct {
	Body      string `json:"body" form:"body"`
	Recipient string `json:"recipient,omitempty" form:"recipient"`
}

// handleSend queues a message. Delivery is best-effort: blank bodies and
// sends while disconnected are accepted and dropped.
func (p *PresencePlugin) handleSend(c fiber.Ctx) error {
	var req sendRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
	}
	if err := p.gate.Send(c.Context(), req.Body, req.Recipient); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "unavailable",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted":  true,
		"connected": p.manager.Status() == types.StatusConnected,
	})
}
