package wsserver

import (
	"context"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/negotiation-relay/modules/negotiator"
	"github.com/example/negotiation-relay/modules/relay"
)

// NegotiationService is the slice of the orchestrator the REST surface
// needs.
type NegotiationService interface {
	Start(ctx context.Context, sessionID, topic, partyA, partyB string) (*negotiator.Negotiation, error)
	Get(id string) (*negotiator.Negotiation, bool)
}

// StartNegotiationRequest is the body of POST /api/v1/negotiations.
type StartNegotiationRequest struct {
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic"`
	PartyA    string `json:"partyA"`
	PartyB    string `json:"partyB"`
}

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	relay        *relay.Module
	negotiations NegotiationService
	logger       *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(relayModule *relay.Module, negotiations NegotiationService) *Handlers {
	return &Handlers{
		relay:        relayModule,
		negotiations: negotiations,
		logger:       slog.Default(),
	}
}

// HandleWebSocket runs the read loop for one client connection. The
// connection enters the registry unbound; binding happens when the router
// processes a create/join frame. Teardown removes the participant and
// notifies the remaining peers.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	conn := relay.NewConn(c)
	h.relay.Registry().Add(conn)

	defer func() {
		h.relay.Router().HandleDisconnect(conn)
		conn.Close()
	}()

	h.logger.Info("connection opened", "connID", conn.ID())

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error("read error", "connID", conn.ID(), "error", err)
			}
			break
		}
		h.relay.Router().HandleFrame(conn, raw)
	}

	h.logger.Info("connection closed", "connID", conn.ID())
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.relay.Registry().Count(),
		"sessions":    h.relay.Store().Len(),
	})
}

// StartNegotiation handles POST /api/v1/negotiations.
func (h *Handlers) StartNegotiation(c *fiber.Ctx) error {
	if h.negotiations == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Negotiation orchestrator is disabled",
		})
	}

	var req StartNegotiationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Topic == "" || req.PartyA == "" || req.PartyB == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "topic, partyA and partyB are required",
		})
	}

	n, err := h.negotiations.Start(c.Context(), req.SessionID, req.Topic, req.PartyA, req.PartyB)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(n)
}

// GetNegotiation handles GET /api/v1/negotiations/:id.
func (h *Handlers) GetNegotiation(c *fiber.Ctx) error {
	if h.negotiations == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Negotiation orchestrator is disabled",
		})
	}

	n, ok := h.negotiations.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Negotiation not found",
		})
	}
	return c.JSON(n)
}

// GetAgreement handles GET /api/v1/negotiations/:id/agreement.
func (h *Handlers) GetAgreement(c *fiber.Ctx) error {
	if h.negotiations == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Negotiation orchestrator is disabled",
		})
	}

	n, ok := h.negotiations.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Negotiation not found",
		})
	}
	if n.Agreement == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Negotiation has not produced an agreement yet",
		})
	}
	return c.JSON(n.Agreement)
}
