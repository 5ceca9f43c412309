package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

// UserService manages users and their current role.
type UserService interface {
	Create(ctx context.Context, payload dto.UserCreateRequest, actor ActivityActor) (dto.UserResponse, error)
	Get(ctx context.Context, id string) (dto.UserResponse, error)
	ChangeRole(ctx context.Context, id string, payload dto.UserRoleUpdateRequest, actor ActivityActor) (dto.UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	activity  ActivityRecorder
	cache     *AssignmentListingCache
	events    EventPublisher
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, validator *validator.Validate, activity ActivityRecorder, cache *AssignmentListingCache, events EventPublisher, logger zerolog.Logger) UserService {
	if events == nil {
		events = noopPublisher{}
	}
	return &userService{
		repo:      repo,
		validator: validator,
		activity:  activity,
		cache:     cache,
		events:    events,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, payload dto.UserCreateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, validationError(err)
	}

	role, err := models.ParseRole(payload.Role)
	if err != nil {
		return dto.UserResponse{}, ErrUnknownRole
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, storageError(err)
	}

	user := models.User{
		Name:  strings.TrimSpace(payload.Name),
		Email: email,
		Role:  role,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, storageError(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.created",
		EntityType: "user",
		EntityID:   user.ID,
		Metadata:   map[string]interface{}{"role": string(user.Role)},
	})

	return dto.NewUserResponse(user), nil
}

func (s *userService) Get(ctx context.Context, id string) (dto.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, storageError(err)
	}
	return dto.NewUserResponse(user), nil
}

// ChangeRole swaps the user's role. Role-targeted assignments follow automatically
// because listings resolve membership at read time.
func (s *userService) ChangeRole(ctx context.Context, id string, payload dto.UserRoleUpdateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, validationError(err)
	}

	role, err := models.ParseRole(payload.Role)
	if err != nil {
		return dto.UserResponse{}, ErrUnknownRole
	}

	previous, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, storageError(err)
	}

	user, err := s.repo.UpdateRole(ctx, previous.ID, role)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, storageError(err)
	}

	s.cache.InvalidateUser(ctx, user.ID)

	metadata := map[string]interface{}{
		"user_id": user.ID,
		"from":    string(previous.Role),
		"to":      string(user.Role),
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "user.role_changed",
		EntityType: "user",
		EntityID:   user.ID,
		Metadata:   metadata,
	})
	s.events.Publish(ctx, EventUserRoleChanged, metadata)

	return dto.NewUserResponse(user), nil
}
