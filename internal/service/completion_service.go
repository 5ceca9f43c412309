package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/observability"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

// CompletionService records a user's progress on assignments visible to them.
type CompletionService interface {
	SetStatus(ctx context.Context, assignmentID, userID, status string) (dto.CompletionResponse, error)
}

type completionService struct {
	assignments repository.AssignmentRepository
	completions repository.CompletionRepository
	users       repository.UserRepository
	cache       *AssignmentListingCache
	events      EventPublisher
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCompletionService constructs the completion tracker.
func NewCompletionService(assignments repository.AssignmentRepository, completions repository.CompletionRepository, users repository.UserRepository, cache *AssignmentListingCache, events EventPublisher, logger zerolog.Logger) CompletionService {
	if events == nil {
		events = noopPublisher{}
	}
	return &completionService{
		assignments: assignments,
		completions: completions,
		users:       users,
		cache:       cache,
		events:      events,
		tracer:      otel.Tracer("github.com/noah-isme/agency-ops-api/internal/service/completion"),
		logger:      logger.With().Str("component", "completion_service").Logger(),
		now:         time.Now,
	}
}

func (s *completionService) SetStatus(ctx context.Context, assignmentID, userID, status string) (dto.CompletionResponse, error) {
	target, ok := models.ParseCompletionStatus(status)
	if !ok {
		return dto.CompletionResponse{}, ErrInvalidCompletionStatus
	}

	spanCtx, span := s.tracer.Start(ctx, "completions.set_status", trace.WithAttributes(
		attribute.String("completion.assignment_id", assignmentID),
		attribute.String("completion.user_id", userID),
		attribute.String("completion.status", string(target)),
	))
	defer span.End()

	assignment, err := s.assignments.GetByID(spanCtx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompletionResponse{}, ErrAssignmentNotFound
		}
		span.RecordError(err)
		return dto.CompletionResponse{}, storageError(err)
	}

	user, err := s.users.GetByID(spanCtx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompletionResponse{}, ErrUserNotFound
		}
		span.RecordError(err)
		return dto.CompletionResponse{}, storageError(err)
	}

	if !assignment.VisibleTo(user.ID, user.Role) {
		return dto.CompletionResponse{}, ErrAssignmentNotFound
	}

	now := s.now().UTC()
	stored, err := s.completions.Transition(spanCtx, assignment.ID, user.ID, func(current models.Completion, found bool) (models.Completion, error) {
		return nextCompletion(current, found, target, now)
	})
	if err != nil {
		if errors.Is(err, repository.ErrCompletionBehind) {
			return dto.CompletionResponse{}, ErrCompletionRegression
		}
		if !errors.Is(err, ErrValidation) {
			span.RecordError(err)
		}
		return dto.CompletionResponse{}, storageError(err)
	}

	observability.CompletionTransitions().WithLabelValues(string(stored.Status)).Inc()
	s.cache.InvalidateUser(spanCtx, user.ID)
	s.events.Publish(spanCtx, EventCompletionUpdated, map[string]interface{}{
		"assignment_id": assignment.ID,
		"user_id":       user.ID,
		"status":        string(stored.Status),
	})

	return dto.NewCompletionResponse(stored), nil
}

// nextCompletion applies the forward-only lifecycle NOT_STARTED → IN_PROGRESS → COMPLETE.
// StartedAt is stamped on the first move to IN_PROGRESS or beyond and CompletedAt on the
// move to COMPLETE; neither is overwritten afterwards.
func nextCompletion(current models.Completion, found bool, target models.CompletionStatus, now time.Time) (models.Completion, error) {
	next := models.Completion{Status: target, UpdatedAt: now, CreatedAt: now}
	if found {
		if target.Rank() < current.Status.Rank() {
			return models.Completion{}, ErrCompletionRegression
		}
		next.CreatedAt = current.CreatedAt
		next.StartedAt = current.StartedAt
		next.CompletedAt = current.CompletedAt
	}

	if target.Rank() >= models.CompletionInProgress.Rank() && next.StartedAt == nil {
		started := now
		next.StartedAt = &started
	}
	if target == models.CompletionComplete && next.CompletedAt == nil {
		completed := now
		next.CompletedAt = &completed
	}

	return next, nil
}
