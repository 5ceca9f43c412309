package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

// Audience is a validated, de-duplicated audience. Targets hold user ids in USER mode
// and role tags in ROLE mode.
type Audience struct {
	Type    models.AudienceType
	Targets []string
}

// AudienceResolver validates assignment audiences. Roles are kept as role tags;
// membership is evaluated when assignments are listed.
type AudienceResolver struct {
	users repository.UserRepository
}

// NewAudienceResolver constructs the resolver.
func NewAudienceResolver(users repository.UserRepository) *AudienceResolver {
	return &AudienceResolver{users: users}
}

// Resolve validates the request and returns its targets without touching assignments.
func (r *AudienceResolver) Resolve(ctx context.Context, req dto.AudienceRequest) (Audience, error) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "user":
		return r.resolveUsers(ctx, req.UserIDs)
	case "role":
		return resolveRoles(req.Roles)
	default:
		return Audience{}, ErrInvalidAudienceType
	}
}

func (r *AudienceResolver) resolveUsers(ctx context.Context, userIDs []string) (Audience, error) {
	targets := dedupe(userIDs, strings.TrimSpace)
	if len(targets) == 0 {
		return Audience{}, ErrAudienceEmpty
	}

	existing, err := r.users.ExistingIDs(ctx, targets)
	if err != nil {
		return Audience{}, storageError(err)
	}
	for _, id := range targets {
		if _, ok := existing[id]; !ok {
			return Audience{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
	}

	return Audience{Type: models.AudienceUser, Targets: targets}, nil
}

func resolveRoles(roles []string) (Audience, error) {
	tags := dedupe(roles, func(value string) string {
		return strings.ToUpper(strings.TrimSpace(value))
	})
	if len(tags) == 0 {
		return Audience{}, ErrAudienceEmpty
	}

	for _, tag := range tags {
		if !models.Role(tag).Valid() {
			return Audience{}, fmt.Errorf("%w: %s", ErrUnknownRole, tag)
		}
	}

	return Audience{Type: models.AudienceRole, Targets: tags}, nil
}

// dedupe normalises values, drops blanks and keeps the first occurrence of each.
func dedupe(values []string, normalize func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		normalized := normalize(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
