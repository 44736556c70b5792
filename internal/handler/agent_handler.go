package handler

import (
	"strings"

	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/pkg/serverutils"
	"bank-support-be/internal/service"
	internalWS "bank-support-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// AgentHandler serves the live agent console: a websocket that streams
// escalation, handover and KB change events to human agents.
type AgentHandler struct {
	hub        *internalWS.Hub
	handover   service.IHandoverService
	adminToken string
	jwtSecret  string
	logger     logger.ILogger
}

func NewAgentHandler(hub *internalWS.Hub, handover service.IHandoverService, adminToken, jwtSecret string, log logger.ILogger) *AgentHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AgentHandler{hub: hub, handover: handover, adminToken: adminToken, jwtSecret: jwtSecret, logger: log}
}

func (h *AgentHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/agents", h.ServeWs)

	admin := r.Group("/api/admin/agents")
	admin.Use(serverutils.AdminMiddleware(h.adminToken, h.jwtSecret))
	admin.Get("/", h.Status)
	admin.Get("/tickets/:id", h.Ticket)
}

// ServeWs authenticates the handshake and hands the socket to the hub.
func (h *AgentHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query
	// param comes first.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			tokenStr = auth[len("Bearer "):]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (query 'token' or Authorization header)"))
	}

	subject, ok := serverutils.AuthorizeAdmin(tokenStr, h.adminToken, h.jwtSecret)
	if !ok {
		h.logger.Warn("AGENT_WS", "Rejected agent handshake", map[string]interface{}{"ip": c.IP()})
		return c.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "Invalid admin token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("AGENT_WS", "Agent session started", map[string]interface{}{"agent": subject})
		internalWS.ServeAgent(h.hub, conn, subject)
		h.logger.Info("AGENT_WS", "Agent session ended", map[string]interface{}{"agent": subject})
	})(c)
}

func (h *AgentHandler) Status(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Agent console status", fiber.Map{
		"connected": h.hub.ClientCount(),
	}))
}

func (h *AgentHandler) Ticket(c *fiber.Ctx) error {
	res, err := h.handover.Ticket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Handover ticket", res))
}
