package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionStatus is the per-user progress on an assignment.
type CompletionStatus string

const (
	CompletionNotStarted CompletionStatus = "NOT_STARTED"
	CompletionInProgress CompletionStatus = "IN_PROGRESS"
	CompletionComplete   CompletionStatus = "COMPLETE"
)

var completionRank = map[CompletionStatus]int{
	CompletionNotStarted: 0,
	CompletionInProgress: 1,
	CompletionComplete:   2,
}

// ParseCompletionStatus accepts upper or lower case and dashes instead of underscores.
func ParseCompletionStatus(value string) (CompletionStatus, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	status := CompletionStatus(normalized)
	_, ok := completionRank[status]
	return status, ok
}

// Rank orders statuses; a higher rank is further along.
func (s CompletionStatus) Rank() int {
	if rank, ok := completionRank[s]; ok {
		return rank
	}
	return -1
}

// Completion records one user's progress on one assignment.
type Completion struct {
	ID           string           `gorm:"primaryKey;size:36" json:"id"`
	AssignmentID string           `gorm:"size:36;not null;uniqueIndex:idx_completion_assignment_user,priority:1" json:"assignment_id"`
	UserID       string           `gorm:"size:36;not null;uniqueIndex:idx_completion_assignment_user,priority:2" json:"user_id"`
	Status       CompletionStatus `gorm:"size:16;not null" json:"status"`
	StartedAt    *time.Time       `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// BeforeCreate assigns a UUID.
func (c *Completion) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
