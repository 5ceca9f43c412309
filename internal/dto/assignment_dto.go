package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

const isoLayout = time.RFC3339

// AudienceRequest is the tagged audience union: user ids for type "user", role tags for type "role".
type AudienceRequest struct {
	Type    string   `json:"type" validate:"required"`
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,required"`
	Roles   []string `json:"roles" validate:"omitempty,dive,required"`
}

// AssignRequest describes a bulk assignment of catalog items to an audience.
type AssignRequest struct {
	ItemKind string          `json:"item_kind" validate:"required"`
	ItemIDs  []string        `json:"item_ids" validate:"required,min=1,dive,required"`
	Audience AudienceRequest `json:"audience" validate:"required"`
	DueDate  *string         `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ItemFailure reports an item that could not be assigned.
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// AssignResponse summarises a fan-out.
type AssignResponse struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Failed  []ItemFailure `json:"failed"`
	Message string        `json:"message"`
}

// ParseOptionalTime parses an RFC3339 timestamp, returning nil for a nil or blank value.
func ParseOptionalTime(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(isoLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}

// AssignSummaryMessage renders the human readable outcome of a fan-out.
func AssignSummaryMessage(audience models.AudienceType, created, skipped, failed int) string {
	noun := "user(s)"
	if audience == models.AudienceRole {
		noun = "role(s)"
	}

	message := fmt.Sprintf("Assigned to %d %s.", created, noun)
	if skipped > 0 {
		message += fmt.Sprintf(" Skipped %d duplicate(s).", skipped)
	}
	if failed > 0 {
		message += fmt.Sprintf(" %d item(s) not found.", failed)
	}
	return message
}

// AssignmentResponse is the serialized assignment row.
type AssignmentResponse struct {
	ID           string              `json:"id"`
	ItemKind     models.ItemKind     `json:"item_kind"`
	ItemID       string              `json:"item_id"`
	AudienceType models.AudienceType `json:"audience_type"`
	UserID       string              `json:"user_id,omitempty"`
	Role         models.Role         `json:"role,omitempty"`
	DueDate      *time.Time          `json:"due_date"`
	CreatedBy    string              `json:"created_by,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           model.ID,
		ItemKind:     model.ItemKind,
		ItemID:       model.ItemID,
		AudienceType: model.AudienceType,
		UserID:       model.UserID,
		Role:         model.Role,
		DueDate:      model.DueDate,
		CreatedBy:    model.CreatedBy,
		CreatedAt:    model.CreatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}

// VisibleAssignment is one row of a user's assignment inbox.
type VisibleAssignment struct {
	Assignment AssignmentResponse  `json:"assignment"`
	Item       models.ItemSummary  `json:"item"`
	Completion *CompletionResponse `json:"completion"`
}

// Status returns the effective status, NOT_STARTED when the user never acted.
func (v VisibleAssignment) Status() models.CompletionStatus {
	if v.Completion == nil {
		return models.CompletionNotStarted
	}
	return v.Completion.Status
}
