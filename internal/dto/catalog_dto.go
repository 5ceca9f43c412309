package dto

import "github.com/noah-isme/agency-ops-api/internal/models"

// ResourceCreateRequest creates a learning resource.
type ResourceCreateRequest struct {
	Title string   `json:"title" validate:"required,min=2,max=255"`
	Type  string   `json:"type" validate:"required,oneof=course article video document book"`
	URL   string   `json:"url" validate:"omitempty,url"`
	Tags  []string `json:"tags" validate:"omitempty,dive,min=1,max=32"`
}

// ToolCreateRequest creates a tool.
type ToolCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Category string `json:"category" validate:"omitempty,max=64"`
	URL      string `json:"url" validate:"omitempty,url"`
}

// TaskCreateRequest creates a task.
type TaskCreateRequest struct {
	Title    string  `json:"title" validate:"required,min=2,max=255"`
	Priority string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate  *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// CatalogListResponse groups the items of one kind.
type CatalogListResponse struct {
	Kind      models.ItemKind           `json:"kind"`
	Resources []models.LearningResource `json:"resources,omitempty"`
	Tools     []models.Tool             `json:"tools,omitempty"`
	Tasks     []models.Task             `json:"tasks,omitempty"`
}
