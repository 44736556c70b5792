package controller

import (
	"bank-support-be/internal/dto"
	"bank-support-be/internal/pkg/serverutils"
	"bank-support-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKBController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Similar(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Reload(ctx *fiber.Ctx) error
}

type kbController struct {
	kbService  service.IKBService
	adminToken string
	jwtSecret  string
}

func NewKBController(kbService service.IKBService, adminToken, jwtSecret string) IKBController {
	return &kbController{kbService: kbService, adminToken: adminToken, jwtSecret: jwtSecret}
}

func (c *kbController) RegisterRoutes(r fiber.Router) {
	admin := r.Group("/api/admin")
	admin.Use(serverutils.AdminMiddleware(c.adminToken, c.jwtSecret))
	admin.Post("/reload-kb", c.Reload)

	h := admin.Group("/kb")
	h.Get("", c.List)
	h.Get("/search/:query", c.Search)
	h.Get("/similar", c.Similar)
	h.Get("/:id", c.Show)
	h.Post("", c.Create)
	h.Put("/:id", c.Update)
	h.Delete("/:id", c.Delete)
}

func (c *kbController) List(ctx *fiber.Ctx) error {
	res, err := c.kbService.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("KB entries", res))
}

func (c *kbController) Search(ctx *fiber.Ctx) error {
	res, err := c.kbService.Search(ctx.UserContext(), ctx.Params("query"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("KB search results", res))
}

func (c *kbController) Similar(ctx *fiber.Ctx) error {
	q := ctx.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query parameter 'q' is required")
	}
	res, err := c.kbService.Similar(ctx.UserContext(), q, ctx.QueryInt("limit", service.DefaultSimilarLimit))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Similar KB entries", res))
}

func (c *kbController) Show(ctx *fiber.Ctx) error {
	res, err := c.kbService.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("KB entry", res))
}

func (c *kbController) Create(ctx *fiber.Ctx) error {
	var req dto.KBEntryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.kbService.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("KB entry created", res))
}

func (c *kbController) Update(ctx *fiber.Ctx) error {
	var req dto.KBEntryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	// The path decides the id; the body may omit it.
	req.Id = ctx.Params("id")
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.kbService.Update(ctx.UserContext(), req.Id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("KB entry updated", res))
}

func (c *kbController) Delete(ctx *fiber.Ctx) error {
	if err := c.kbService.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("KB entry deleted", nil))
}

func (c *kbController) Reload(ctx *fiber.Ctx) error {
	var req dto.ReloadKBRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.kbService.Reload(ctx.UserContext(), req.FilePath)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("KB reloaded", res))
}
