package dto

import (
	"time"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

// CompletionUpdateRequest moves the caller's progress on an assignment.
type CompletionUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// CompletionResponse is the serialized completion row.
type CompletionResponse struct {
	ID           string                  `json:"id"`
	AssignmentID string                  `json:"assignment_id"`
	UserID       string                  `json:"user_id"`
	Status       models.CompletionStatus `json:"status"`
	StartedAt    *time.Time              `json:"started_at"`
	CompletedAt  *time.Time              `json:"completed_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// NewCompletionResponse converts a model into a DTO.
func NewCompletionResponse(model models.Completion) CompletionResponse {
	return CompletionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		UserID:       model.UserID,
		Status:       model.Status,
		StartedAt:    model.StartedAt,
		CompletedAt:  model.CompletedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
