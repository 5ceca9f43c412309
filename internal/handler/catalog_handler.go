package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/service"
	"github.com/noah-isme/agency-ops-api/internal/utils"
)

// CatalogHandler exposes the assignable item catalog.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register attaches catalog routes to the router group.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Post("/:kind", h.create)
	router.Get("/:kind", h.list)
	router.Get("/:kind/:id", h.get)
	router.Delete("/:kind/:id", h.delete)
}

func (h *CatalogHandler) create(c *fiber.Ctx) error {
	kind, err := models.ParseItemKind(c.Params("kind"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrInvalidItemKind.Error())
	}

	actor := activityActorFromContext(c)
	var created interface{}
	switch kind {
	case models.ItemKindResource:
		var payload dto.ResourceCreateRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		created, err = h.service.CreateResource(c.UserContext(), payload, actor)
	case models.ItemKindTool:
		var payload dto.ToolCreateRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		created, err = h.service.CreateTool(c.UserContext(), payload, actor)
	case models.ItemKindTask:
		var payload dto.TaskCreateRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		created, err = h.service.CreateTask(c.UserContext(), payload, actor)
	}
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create catalog item")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, string(kind)+" created", created)
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), c.Params("kind"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list catalog")
	}
	return utils.SendSuccess(c, "catalog retrieved", items)
}

func (h *CatalogHandler) get(c *fiber.Ctx) error {
	item, err := h.service.Get(c.UserContext(), c.Params("kind"), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch catalog item")
	}
	return utils.SendSuccess(c, "catalog item retrieved", item)
}

func (h *CatalogHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), c.Params("kind"), id, activityActorFromContext(c)); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete catalog item")
	}
	return utils.SendSuccess(c, "catalog item deleted", fiber.Map{"id": id})
}
