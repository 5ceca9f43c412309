package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/observability"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

// AssignmentService fans catalog items out to users or roles and serves each user's inbox.
type AssignmentService interface {
	Assign(ctx context.Context, payload dto.AssignRequest, actor ActivityActor) (dto.AssignResponse, error)
	ListForUser(ctx context.Context, userID string, kind string) ([]dto.VisibleAssignment, error)
	ListByItem(ctx context.Context, kind string, itemID string) ([]dto.AssignmentResponse, error)
	Delete(ctx context.Context, id string, actor ActivityActor) error
}

// AssignmentServiceDeps groups the collaborators of the assignment service.
type AssignmentServiceDeps struct {
	Assignments repository.AssignmentRepository
	Completions repository.CompletionRepository
	Catalog     repository.CatalogRepository
	Users       repository.UserRepository
	Resolver    *AudienceResolver
	Validator   *validator.Validate
	Activity    ActivityRecorder
	Cache       *AssignmentListingCache
	Events      EventPublisher
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	completions repository.CompletionRepository
	catalog     repository.CatalogRepository
	users       repository.UserRepository
	resolver    *AudienceResolver
	validator   *validator.Validate
	activity    ActivityRecorder
	cache       *AssignmentListingCache
	events      EventPublisher
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(deps AssignmentServiceDeps, logger zerolog.Logger) AssignmentService {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = NewAudienceResolver(deps.Users)
	}
	events := deps.Events
	if events == nil {
		events = noopPublisher{}
	}

	return &assignmentService{
		assignments: deps.Assignments,
		completions: deps.Completions,
		catalog:     deps.Catalog,
		users:       deps.Users,
		resolver:    resolver,
		validator:   deps.Validator,
		activity:    deps.Activity,
		cache:       deps.Cache,
		events:      events,
		tracer:      otel.Tracer("github.com/noah-isme/agency-ops-api/internal/service/assignment"),
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Assign(ctx context.Context, payload dto.AssignRequest, actor ActivityActor) (dto.AssignResponse, error) {
	if s.validator != nil {
		if err := s.validator.Struct(payload); err != nil {
			return dto.AssignResponse{}, validationError(err)
		}
	}

	kind, err := models.ParseItemKind(payload.ItemKind)
	if err != nil {
		return dto.AssignResponse{}, ErrInvalidItemKind
	}

	itemIDs := dedupe(payload.ItemIDs, strings.TrimSpace)
	if len(itemIDs) == 0 {
		return dto.AssignResponse{}, ErrItemIDsRequired
	}

	dueDate, err := dto.ParseOptionalTime(payload.DueDate)
	if err != nil {
		return dto.AssignResponse{}, ErrInvalidDueDate
	}

	audience, err := s.resolver.Resolve(ctx, payload.Audience)
	if err != nil {
		return dto.AssignResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.assign", trace.WithAttributes(
		attribute.String("assignment.item_kind", string(kind)),
		attribute.String("assignment.audience_type", string(audience.Type)),
		attribute.Int("assignment.items", len(itemIDs)),
		attribute.Int("assignment.targets", len(audience.Targets)),
	))
	defer span.End()

	items, err := s.catalog.LookupMany(spanCtx, kind, itemIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog lookup failed")
		return dto.AssignResponse{}, storageError(err)
	}

	response := dto.AssignResponse{Failed: []dto.ItemFailure{}}
	createdAt := s.now().UTC()
	assignedItems := make([]string, 0, len(itemIDs))

	for _, itemID := range itemIDs {
		if _, ok := items[itemID]; !ok {
			response.Failed = append(response.Failed, dto.ItemFailure{ItemID: itemID, Error: ErrItemNotFound.Error()})
			continue
		}

		created, skipped, err := s.fanOut(spanCtx, kind, itemID, audience, dueDate, actor.ID, createdAt)
		response.Created += created
		response.Skipped += skipped
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "assignment insert failed")
			s.afterAssign(spanCtx, kind, audience, response, assignedItems, actor)
			return response, storageError(err)
		}
		assignedItems = append(assignedItems, itemID)
	}

	response.Message = dto.AssignSummaryMessage(audience.Type, response.Created, response.Skipped, len(response.Failed))
	s.afterAssign(spanCtx, kind, audience, response, assignedItems, actor)

	if len(assignedItems) == 0 {
		return response, ErrItemNotFound
	}

	return response, nil
}

// fanOut writes one row per target for a single item. Duplicates are detected by the
// unique index, never by a read beforehand.
func (s *assignmentService) fanOut(ctx context.Context, kind models.ItemKind, itemID string, audience Audience, dueDate *time.Time, actorID string, createdAt time.Time) (int, int, error) {
	created, skipped := 0, 0
	for _, target := range audience.Targets {
		assignment := models.Assignment{
			ItemKind:     kind,
			ItemID:       itemID,
			AudienceType: audience.Type,
			DueDate:      dueDate,
			CreatedBy:    actorID,
			CreatedAt:    createdAt,
		}
		if audience.Type == models.AudienceRole {
			assignment.Role = models.Role(target)
		} else {
			assignment.UserID = target
		}

		inserted, err := s.assignments.InsertIfAbsent(ctx, &assignment)
		if err != nil {
			return created, skipped, fmt.Errorf("assign %s %s to %s: %w", kind, itemID, target, err)
		}
		if inserted {
			created++
		} else {
			skipped++
		}
	}
	return created, skipped, nil
}

func (s *assignmentService) afterAssign(ctx context.Context, kind models.ItemKind, audience Audience, response dto.AssignResponse, itemIDs []string, actor ActivityActor) {
	observability.AssignmentsCreated().WithLabelValues(string(kind), string(audience.Type)).Add(float64(response.Created))
	observability.AssignmentsSkipped().WithLabelValues(string(kind), string(audience.Type)).Add(float64(response.Skipped))

	if response.Created == 0 {
		return
	}

	s.cache.InvalidateAll(ctx)

	metadata := map[string]interface{}{
		"item_kind":     string(kind),
		"item_ids":      itemIDs,
		"audience_type": string(audience.Type),
		"targets":       audience.Targets,
		"created":       response.Created,
		"skipped":       response.Skipped,
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "assignment.created",
		EntityType: string(kind),
		Metadata:   metadata,
	})
	s.events.Publish(ctx, EventAssignmentsCreated, metadata)

	s.logger.Info().
		Str("item_kind", string(kind)).
		Str("audience_type", string(audience.Type)).
		Int("created", response.Created).
		Int("skipped", response.Skipped).
		Msg("assignments fanned out")
}

func (s *assignmentService) ListForUser(ctx context.Context, userID string, kind string) ([]dto.VisibleAssignment, error) {
	filter := repository.AssignmentFilter{}
	if strings.TrimSpace(kind) != "" {
		parsed, err := models.ParseItemKind(kind)
		if err != nil {
			return nil, ErrInvalidItemKind
		}
		filter.ItemKind = parsed
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.list_for_user", trace.WithAttributes(
		attribute.String("assignment.user_id", userID),
	))
	defer span.End()

	user, err := s.users.GetByID(spanCtx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		span.RecordError(err)
		return nil, storageError(err)
	}

	cached, cacheKey, hit := s.cache.Get(spanCtx, user.ID, filter.ItemKind)
	if hit {
		return cached, nil
	}

	// Role membership is evaluated against the role the user holds right now.
	assignments, err := s.assignments.ListVisible(spanCtx, user.ID, user.Role, filter)
	if err != nil {
		span.RecordError(err)
		return nil, storageError(err)
	}

	summaries, err := s.summarize(spanCtx, assignments)
	if err != nil {
		span.RecordError(err)
		return nil, storageError(err)
	}

	ids := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}
	completions, err := s.completions.ListForUser(spanCtx, user.ID, ids)
	if err != nil {
		span.RecordError(err)
		return nil, storageError(err)
	}

	result := make([]dto.VisibleAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		item, ok := summaries[itemKey(assignment.ItemKind, assignment.ItemID)]
		if !ok {
			s.logger.Warn().Str("assignment_id", assignment.ID).Msg("assignment references a missing item")
			continue
		}

		entry := dto.VisibleAssignment{
			Assignment: dto.NewAssignmentResponse(assignment),
			Item:       item,
		}
		if completion, ok := completions[assignment.ID]; ok {
			response := dto.NewCompletionResponse(completion)
			entry.Completion = &response
		}
		result = append(result, entry)
	}

	s.cache.Set(spanCtx, cacheKey, result)
	return result, nil
}

func (s *assignmentService) summarize(ctx context.Context, assignments []models.Assignment) (map[string]models.ItemSummary, error) {
	idsByKind := make(map[models.ItemKind][]string)
	for _, assignment := range assignments {
		idsByKind[assignment.ItemKind] = append(idsByKind[assignment.ItemKind], assignment.ItemID)
	}

	summaries := make(map[string]models.ItemSummary)
	for kind, ids := range idsByKind {
		found, err := s.catalog.LookupMany(ctx, kind, dedupe(ids, strings.TrimSpace))
		if err != nil {
			return nil, err
		}
		for id, summary := range found {
			summaries[itemKey(kind, id)] = summary
		}
	}
	return summaries, nil
}

func (s *assignmentService) ListByItem(ctx context.Context, kind string, itemID string) ([]dto.AssignmentResponse, error) {
	parsed, err := models.ParseItemKind(kind)
	if err != nil {
		return nil, ErrInvalidItemKind
	}

	itemID = strings.TrimSpace(itemID)
	if _, err := s.catalog.Lookup(ctx, parsed, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, storageError(err)
	}

	assignments, err := s.assignments.ListByItem(ctx, parsed, itemID)
	if err != nil {
		return nil, storageError(err)
	}
	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Delete(ctx context.Context, id string, actor ActivityActor) error {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return storageError(err)
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return storageError(err)
	}

	s.cache.InvalidateAll(ctx)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "assignment.deleted",
		EntityType: "assignment",
		EntityID:   assignment.ID,
		Metadata: map[string]interface{}{
			"item_kind":     string(assignment.ItemKind),
			"item_id":       assignment.ItemID,
			"audience_type": string(assignment.AudienceType),
			"target":        assignment.Target(),
		},
	})

	return nil
}

func itemKey(kind models.ItemKind, id string) string {
	return string(kind) + ":" + id
}
