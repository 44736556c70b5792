package controller

import (
	"time"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/pkg/serverutils"
	"bank-support-be/internal/service"
	internalWS "bank-support-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	Handover(ctx *fiber.Ctx) error
	Metrics(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService       service.IChatService
	handoverService   service.IHandoverService
	handoverRateLimit int
	logger            logger.ILogger
}

func NewChatController(chatService service.IChatService, handoverService service.IHandoverService, handoverRateLimit int, log logger.ILogger) IChatController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &chatController{
		chatService:       chatService,
		handoverService:   handoverService,
		handoverRateLimit: handoverRateLimit,
		logger:            log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Post("/session", c.CreateSession)
	h.Get("/session/:id/history", c.History)
	h.Delete("/session/:id", c.EndSession)
	h.Post("/chat", c.Chat)
	h.Get("/metrics", c.Metrics)
	h.Get("/health", c.Health)

	handover := []fiber.Handler{}
	if c.handoverRateLimit > 0 {
		handover = append(handover, limiter.New(limiter.Config{
			Max:        c.handoverRateLimit,
			Expiration: time.Minute,
			LimitReached: func(ctx *fiber.Ctx) error {
				return ctx.Status(fiber.StatusTooManyRequests).JSON(serverutils.ErrorResponse(fiber.StatusTooManyRequests, "Too many handover requests, try again later"))
			},
		}))
	}
	h.Post("/handover", append(handover, c.Handover)...)

	r.Get("/ws/chat", c.ChatSocket)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Reply generated", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	res, err := c.chatService.History(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session history", res))
}

func (c *chatController) EndSession(ctx *fiber.Ctx) error {
	if err := c.chatService.EndSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session ended", nil))
}

func (c *chatController) Handover(ctx *fiber.Ctx) error {
	var req dto.HandoverRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.handoverService.Request(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Handover queued", res))
}

func (c *chatController) Metrics(ctx *fiber.Ctx) error {
	res, err := c.chatService.Metrics(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Metrics", res))
}

func (c *chatController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", dto.HealthResponse{
		Status:   "ok",
		Provider: c.chatService.ProviderName(),
	}))
}

func (c *chatController) ChatSocket(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeChat(conn, c.chatService, c.logger)
	})(ctx)
}
