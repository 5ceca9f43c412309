package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

// ErrCompletionBehind is returned by Transition when the stored status is already
// further along than the computed one, typically because a concurrent writer committed
// first.
var ErrCompletionBehind = errors.New("completion status is behind the stored status")

// completionRankSQL mirrors models.CompletionStatus.Rank for use inside upserts.
const completionRankSQL = "CASE %s WHEN 'NOT_STARTED' THEN 0 WHEN 'IN_PROGRESS' THEN 1 WHEN 'COMPLETE' THEN 2 ELSE -1 END"

// CompletionTransition computes the row to store from the current one. found is false
// when the user has not acted on the assignment yet.
type CompletionTransition func(current models.Completion, found bool) (models.Completion, error)

// CompletionRepository persists per-user progress on assignments.
type CompletionRepository interface {
	ListForUser(ctx context.Context, userID string, assignmentIDs []string) (map[string]models.Completion, error)
	Transition(ctx context.Context, assignmentID, userID string, apply CompletionTransition) (models.Completion, error)
}

type completionRepository struct {
	db *gorm.DB
}

// NewCompletionRepository instantiates a GORM-backed completion repository.
func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) ListForUser(ctx context.Context, userID string, assignmentIDs []string) (map[string]models.Completion, error) {
	result := make(map[string]models.Completion, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return result, nil
	}

	var completions []models.Completion
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND assignment_id IN ?", userID, assignmentIDs).
		Find(&completions).Error; err != nil {
		return nil, err
	}
	for _, completion := range completions {
		result[completion.AssignmentID] = completion
	}
	return result, nil
}

// Transition reads the current row, lets apply compute the next state and upserts it on
// (assignment_id, user_id). Timestamps already set are never replaced, and the update
// branch only fires when it does not lower the stored status, even when a concurrent
// writer inserted the row first.
func (r *completionRepository) Transition(ctx context.Context, assignmentID, userID string, apply CompletionTransition) (models.Completion, error) {
	var stored models.Completion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Completion
		found := true
		if err := tx.Where("assignment_id = ? AND user_id = ?", assignmentID, userID).First(&current).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		next, err := apply(current, found)
		if err != nil {
			return err
		}
		next.ID = ""
		next.AssignmentID = assignmentID
		next.UserID = userID

		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}, {Name: "user_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "status"}, Value: gorm.Expr("excluded.status")},
				{Column: clause.Column{Name: "started_at"}, Value: gorm.Expr("COALESCE(completions.started_at, excluded.started_at)")},
				{Column: clause.Column{Name: "completed_at"}, Value: gorm.Expr("COALESCE(completions.completed_at, excluded.completed_at)")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr(fmt.Sprintf(completionRankSQL, "completions.status") + " <= " + fmt.Sprintf(completionRankSQL, "excluded.status")),
			}},
		}).Create(&next)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCompletionBehind
		}

		return tx.Where("assignment_id = ? AND user_id = ?", assignmentID, userID).First(&stored).Error
	})
	if err != nil {
		return models.Completion{}, err
	}
	return stored, nil
}
