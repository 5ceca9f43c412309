package dto

import (
	"time"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

// UserCreateRequest registers a user with a role.
type UserCreateRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// UserRoleUpdateRequest changes a user's role.
type UserRoleUpdateRequest struct {
	Role string `json:"role" validate:"required"`
}

// UserResponse is the serialized user.
type UserResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      models.Role      `json:"role"`
	RoleStyle models.RoleStyle `json:"role_style"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Role:      model.Role,
		RoleStyle: model.Role.Style(),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// RoleResponse describes one entry of the role enum.
type RoleResponse struct {
	Role       models.Role `json:"role"`
	Color      string      `json:"color"`
	Icon       string      `json:"icon"`
	Management bool        `json:"management"`
}

// NewRoleResponseSlice renders the role enum in display order.
func NewRoleResponseSlice(roles []models.Role) []RoleResponse {
	responses := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		style := role.Style()
		responses = append(responses, RoleResponse{
			Role:       role,
			Color:      style.Color,
			Icon:       style.Icon,
			Management: role.IsManagement(),
		})
	}
	return responses
}
