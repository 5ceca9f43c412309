package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AudienceType tells whether an assignment targets a single user or a role.
type AudienceType string

const (
	AudienceUser AudienceType = "USER"
	AudienceRole AudienceType = "ROLE"
)

// Assignment binds one catalog item to one user or one role.
//
// Exactly one of UserID and Role is non-empty. The unused column holds an empty
// string rather than NULL so idx_assignment_target stays unique on every engine.
// Role assignments are resolved to users when they are read, never when written.
type Assignment struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	ItemKind     ItemKind     `gorm:"size:16;not null;uniqueIndex:idx_assignment_target,priority:1" json:"item_kind"`
	ItemID       string       `gorm:"size:36;not null;uniqueIndex:idx_assignment_target,priority:2" json:"item_id"`
	AudienceType AudienceType `gorm:"size:8;not null;uniqueIndex:idx_assignment_target,priority:3" json:"audience_type"`
	UserID       string       `gorm:"size:36;not null;uniqueIndex:idx_assignment_target,priority:4;index" json:"user_id,omitempty"`
	Role         Role         `gorm:"size:32;not null;uniqueIndex:idx_assignment_target,priority:5;index" json:"role,omitempty"`
	DueDate      *time.Time   `json:"due_date"`
	CreatedBy    string       `gorm:"size:36" json:"created_by"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
	Completions  []Completion `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID.
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Target returns the user id or role tag the assignment points at.
func (a Assignment) Target() string {
	if a.AudienceType == AudienceRole {
		return string(a.Role)
	}
	return a.UserID
}

// VisibleTo reports whether a user holding role sees this assignment.
func (a Assignment) VisibleTo(userID string, role Role) bool {
	switch a.AudienceType {
	case AudienceUser:
		return a.UserID == userID
	case AudienceRole:
		return a.Role == role
	default:
		return false
	}
}
