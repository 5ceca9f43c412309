package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemKind discriminates the assignable item types.
type ItemKind string

const (
	ItemKindResource ItemKind = "resource"
	ItemKindTool     ItemKind = "tool"
	ItemKindTask     ItemKind = "task"
)

// ItemKinds lists every assignable kind.
var ItemKinds = []ItemKind{ItemKindResource, ItemKindTool, ItemKindTask}

// ParseItemKind normalises a kind coming from a request. Plural forms are accepted.
func ParseItemKind(value string) (ItemKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimSuffix(normalized, "s")
	for _, kind := range ItemKinds {
		if string(kind) == normalized {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown item kind %q", value)
}

// Task priorities.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// LearningResource is a course, article, video or document the team should study.
type LearningResource struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	URL       string    `gorm:"size:512" json:"url"`
	Tags      []string  `gorm:"serializer:json" json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID.
func (r *LearningResource) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Tool is a piece of software the team is expected to set up or use.
type Tool struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Category  string    `gorm:"size:64" json:"category"`
	URL       string    `gorm:"size:512" json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID.
func (t *Tool) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Task is a unit of work handed to a person or a role.
type Task struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Priority  string     `gorm:"size:16;not null;default:medium" json:"priority"`
	DueDate   *time.Time `json:"due_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID.
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ItemSummary is the display projection shared by every kind.
type ItemSummary struct {
	Kind  ItemKind `json:"kind"`
	ID    string   `json:"id"`
	Title string   `json:"title"`
}
