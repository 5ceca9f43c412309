package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

// CatalogService manages the learning resources, tools and tasks that can be assigned.
type CatalogService interface {
	CreateResource(ctx context.Context, payload dto.ResourceCreateRequest, actor ActivityActor) (models.LearningResource, error)
	CreateTool(ctx context.Context, payload dto.ToolCreateRequest, actor ActivityActor) (models.Tool, error)
	CreateTask(ctx context.Context, payload dto.TaskCreateRequest, actor ActivityActor) (models.Task, error)
	List(ctx context.Context, kind string) (dto.CatalogListResponse, error)
	Get(ctx context.Context, kind, id string) (models.ItemSummary, error)
	Delete(ctx context.Context, kind, id string, actor ActivityActor) error
}

type catalogService struct {
	repo      repository.CatalogRepository
	validator *validator.Validate
	activity  ActivityRecorder
	cache     *AssignmentListingCache
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo repository.CatalogRepository, validator *validator.Validate, activity ActivityRecorder, cache *AssignmentListingCache, logger zerolog.Logger) CatalogService {
	return &catalogService{
		repo:      repo,
		validator: validator,
		activity:  activity,
		cache:     cache,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) CreateResource(ctx context.Context, payload dto.ResourceCreateRequest, actor ActivityActor) (models.LearningResource, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.LearningResource{}, validationError(err)
	}

	title, err := s.clean(payload.Title)
	if err != nil {
		return models.LearningResource{}, err
	}

	tags := dedupe(payload.Tags, func(value string) string {
		return strings.ToLower(strings.TrimSpace(s.sanitizer.Sanitize(value)))
	})

	resource := models.LearningResource{
		Title: title,
		Type:  strings.ToLower(strings.TrimSpace(payload.Type)),
		URL:   strings.TrimSpace(payload.URL),
		Tags:  tags,
	}
	if err := s.repo.CreateResource(ctx, &resource); err != nil {
		return models.LearningResource{}, storageError(err)
	}

	s.recordCreated(ctx, actor, models.ItemKindResource, resource.ID, resource.Title)
	return resource, nil
}

func (s *catalogService) CreateTool(ctx context.Context, payload dto.ToolCreateRequest, actor ActivityActor) (models.Tool, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Tool{}, validationError(err)
	}

	name, err := s.clean(payload.Name)
	if err != nil {
		return models.Tool{}, err
	}

	tool := models.Tool{
		Name:     name,
		Category: strings.TrimSpace(s.sanitizer.Sanitize(payload.Category)),
		URL:      strings.TrimSpace(payload.URL),
	}
	if err := s.repo.CreateTool(ctx, &tool); err != nil {
		return models.Tool{}, storageError(err)
	}

	s.recordCreated(ctx, actor, models.ItemKindTool, tool.ID, tool.Name)
	return tool, nil
}

func (s *catalogService) CreateTask(ctx context.Context, payload dto.TaskCreateRequest, actor ActivityActor) (models.Task, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Task{}, validationError(err)
	}

	title, err := s.clean(payload.Title)
	if err != nil {
		return models.Task{}, err
	}

	dueDate, err := dto.ParseOptionalTime(payload.DueDate)
	if err != nil {
		return models.Task{}, ErrInvalidDueDate
	}

	priority := strings.ToLower(strings.TrimSpace(payload.Priority))
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := models.Task{Title: title, Priority: priority, DueDate: dueDate}
	if err := s.repo.CreateTask(ctx, &task); err != nil {
		return models.Task{}, storageError(err)
	}

	s.recordCreated(ctx, actor, models.ItemKindTask, task.ID, task.Title)
	return task, nil
}

func (s *catalogService) List(ctx context.Context, kind string) (dto.CatalogListResponse, error) {
	parsed, err := models.ParseItemKind(kind)
	if err != nil {
		return dto.CatalogListResponse{}, ErrInvalidItemKind
	}

	response := dto.CatalogListResponse{Kind: parsed}
	switch parsed {
	case models.ItemKindResource:
		response.Resources, err = s.repo.ListResources(ctx)
	case models.ItemKindTool:
		response.Tools, err = s.repo.ListTools(ctx)
	case models.ItemKindTask:
		response.Tasks, err = s.repo.ListTasks(ctx)
	}
	if err != nil {
		return dto.CatalogListResponse{}, storageError(err)
	}
	return response, nil
}

func (s *catalogService) Get(ctx context.Context, kind, id string) (models.ItemSummary, error) {
	parsed, err := models.ParseItemKind(kind)
	if err != nil {
		return models.ItemSummary{}, ErrInvalidItemKind
	}

	summary, err := s.repo.Lookup(ctx, parsed, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ItemSummary{}, ErrItemNotFound
		}
		return models.ItemSummary{}, storageError(err)
	}
	return summary, nil
}

func (s *catalogService) Delete(ctx context.Context, kind, id string, actor ActivityActor) error {
	parsed, err := models.ParseItemKind(kind)
	if err != nil {
		return ErrInvalidItemKind
	}

	if err := s.repo.Delete(ctx, parsed, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return storageError(err)
	}

	s.cache.InvalidateAll(ctx)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "catalog.deleted",
		EntityType: string(parsed),
		EntityID:   id,
	})
	return nil
}

func (s *catalogService) clean(value string) (string, error) {
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(value))
	if cleaned == "" {
		return "", validationError(errors.New("title is empty after sanitization"))
	}
	return cleaned, nil
}

func (s *catalogService) recordCreated(ctx context.Context, actor ActivityActor, kind models.ItemKind, id, title string) {
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "catalog.created",
		EntityType: string(kind),
		EntityID:   id,
		Metadata:   map[string]interface{}{"title": title},
	})
}
