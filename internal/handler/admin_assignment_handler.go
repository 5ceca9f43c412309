package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/service"
	"github.com/noah-isme/agency-ops-api/internal/utils"
)

// AdminAssignmentHandler wires the bulk assignment endpoints for managers.
type AdminAssignmentHandler struct {
	service service.AssignmentService
	limiter fiber.Handler
	logger  zerolog.Logger
}

// NewAdminAssignmentHandler constructs the handler. limiter may be nil.
func NewAdminAssignmentHandler(service service.AssignmentService, limiter fiber.Handler, logger zerolog.Logger) *AdminAssignmentHandler {
	return &AdminAssignmentHandler{
		service: service,
		limiter: limiter,
		logger:  logger.With().Str("component", "admin_assignment_handler").Logger(),
	}
}

// Register attaches assignment admin routes to the router group.
func (h *AdminAssignmentHandler) Register(router fiber.Router) {
	if h.limiter != nil {
		router.Post("", h.limiter, h.assign)
	} else {
		router.Post("", h.assign)
	}
	router.Get("", h.listByItem)
	router.Delete("/:id", h.delete)
}

func (h *AdminAssignmentHandler) assign(c *fiber.Ctx) error {
	var payload dto.AssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Assign(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) && len(result.Failed) > 0 {
			return c.Status(fiber.StatusNotFound).JSON(utils.APIResponse{
				Success: false,
				Data:    result,
				Message: "no matching items found",
			})
		}
		return sendServiceError(c, h.logger, err, "failed to assign items")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, result.Message, result)
}

func (h *AdminAssignmentHandler) listByItem(c *fiber.Ctx) error {
	kind := c.Query("item_kind")
	itemID := c.Query("item_id")
	if kind == "" || itemID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "item_kind and item_id are required")
	}

	assignments, err := h.service.ListByItem(c.UserContext(), kind, itemID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list assignments")
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AdminAssignmentHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete assignment")
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}
