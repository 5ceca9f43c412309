package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

// CatalogRepository stores the assignable items and resolves their display summaries.
type CatalogRepository interface {
	CreateResource(ctx context.Context, resource *models.LearningResource) error
	CreateTool(ctx context.Context, tool *models.Tool) error
	CreateTask(ctx context.Context, task *models.Task) error
	ListResources(ctx context.Context) ([]models.LearningResource, error)
	ListTools(ctx context.Context) ([]models.Tool, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	Lookup(ctx context.Context, kind models.ItemKind, id string) (models.ItemSummary, error)
	LookupMany(ctx context.Context, kind models.ItemKind, ids []string) (map[string]models.ItemSummary, error)
	Delete(ctx context.Context, kind models.ItemKind, id string) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository instantiates a GORM-backed catalog.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateResource(ctx context.Context, resource *models.LearningResource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *catalogRepository) CreateTool(ctx context.Context, tool *models.Tool) error {
	return r.db.WithContext(ctx).Create(tool).Error
}

func (r *catalogRepository) CreateTask(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *catalogRepository) ListResources(ctx context.Context) ([]models.LearningResource, error) {
	var resources []models.LearningResource
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *catalogRepository) ListTools(ctx context.Context) ([]models.Tool, error) {
	var tools []models.Tool
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

func (r *catalogRepository) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *catalogRepository) Lookup(ctx context.Context, kind models.ItemKind, id string) (models.ItemSummary, error) {
	summaries, err := r.LookupMany(ctx, kind, []string{id})
	if err != nil {
		return models.ItemSummary{}, err
	}
	summary, ok := summaries[id]
	if !ok {
		return models.ItemSummary{}, gorm.ErrRecordNotFound
	}
	return summary, nil
}

func (r *catalogRepository) LookupMany(ctx context.Context, kind models.ItemKind, ids []string) (map[string]models.ItemSummary, error) {
	summaries := make(map[string]models.ItemSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	model, titleColumn, err := catalogModel(kind)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID    string
		Title string
	}
	if err := r.db.WithContext(ctx).
		Model(model).
		Select("id, "+titleColumn+" AS title").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		summaries[row.ID] = models.ItemSummary{Kind: kind, ID: row.ID, Title: row.Title}
	}
	return summaries, nil
}

// Delete removes the item together with every assignment and completion that points at it.
func (r *catalogRepository) Delete(ctx context.Context, kind models.ItemKind, id string) error {
	model, _, err := catalogModel(kind)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignmentIDs []string
		if err := tx.Model(&models.Assignment{}).
			Where("item_kind = ? AND item_id = ?", kind, id).
			Pluck("id", &assignmentIDs).Error; err != nil {
			return err
		}

		if len(assignmentIDs) > 0 {
			if err := tx.Where("assignment_id IN ?", assignmentIDs).Delete(&models.Completion{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", assignmentIDs).Delete(&models.Assignment{}).Error; err != nil {
				return err
			}
		}

		result := tx.Where("id = ?", id).Delete(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func catalogModel(kind models.ItemKind) (interface{}, string, error) {
	switch kind {
	case models.ItemKindResource:
		return &models.LearningResource{}, "title", nil
	case models.ItemKindTool:
		return &models.Tool{}, "name", nil
	case models.ItemKindTask:
		return &models.Task{}, "title", nil
	default:
		return nil, "", fmt.Errorf("unsupported item kind %q", kind)
	}
}
