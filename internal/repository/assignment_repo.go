package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

// AssignmentFilter narrows the visible-assignment listing.
type AssignmentFilter struct {
	ItemKind models.ItemKind
}

// AssignmentRepository persists item-to-audience bindings.
type AssignmentRepository interface {
	InsertIfAbsent(ctx context.Context, assignment *models.Assignment) (bool, error)
	GetByID(ctx context.Context, id string) (models.Assignment, error)
	ListVisible(ctx context.Context, userID string, role models.Role, filter AssignmentFilter) ([]models.Assignment, error)
	ListByItem(ctx context.Context, kind models.ItemKind, itemID string) ([]models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// InsertIfAbsent inserts the row unless idx_assignment_target already holds the same
// (item, audience, target) tuple. It reports whether a row was written.
func (r *assignmentRepository) InsertIfAbsent(ctx context.Context, assignment *models.Assignment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "item_kind"},
				{Name: "item_id"},
				{Name: "audience_type"},
				{Name: "user_id"},
				{Name: "role"},
			},
			DoNothing: true,
		}).
		Create(assignment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) ListVisible(ctx context.Context, userID string, role models.Role, filter AssignmentFilter) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where(
			r.db.Where("audience_type = ? AND user_id = ?", models.AudienceUser, userID).
				Or("audience_type = ? AND role = ?", models.AudienceRole, role),
		)

	if filter.ItemKind != "" {
		query = query.Where("item_kind = ?", filter.ItemKind)
	}

	var assignments []models.Assignment
	if err := query.Order("created_at DESC").Order("id DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) ListByItem(ctx context.Context, kind models.ItemKind, itemID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("item_kind = ? AND item_id = ?", kind, itemID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// Delete removes the assignment and its completions.
func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", id).Delete(&models.Completion{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Assignment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
