package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/service"
	"github.com/noah-isme/agency-ops-api/internal/utils"
)

// MyAssignmentHandler serves the authenticated user's assignment inbox.
type MyAssignmentHandler struct {
	assignments service.AssignmentService
	completions service.CompletionService
	logger      zerolog.Logger
}

// NewMyAssignmentHandler constructs the handler.
func NewMyAssignmentHandler(assignments service.AssignmentService, completions service.CompletionService, logger zerolog.Logger) *MyAssignmentHandler {
	return &MyAssignmentHandler{
		assignments: assignments,
		completions: completions,
		logger:      logger.With().Str("component", "my_assignment_handler").Logger(),
	}
}

// Register attaches the inbox routes.
func (h *MyAssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Put("/:id/completion", h.setCompletion)
}

func (h *MyAssignmentHandler) list(c *fiber.Ctx) error {
	items, err := h.assignments.ListForUser(c.UserContext(), userIDFromContext(c), c.Query("kind"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list assignments")
	}

	return utils.SendSuccess(c, "assignments retrieved", items)
}

func (h *MyAssignmentHandler) setCompletion(c *fiber.Ctx) error {
	var payload dto.CompletionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	completion, err := h.completions.SetStatus(c.UserContext(), c.Params("id"), userIDFromContext(c), payload.Status)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update completion")
	}

	return utils.SendSuccess(c, "completion updated", completion)
}
