package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
)

func TestAudienceResolverKeepsInputOrder(t *testing.T) {
	f := newFixture(t, nil)
	resolver := NewAudienceResolver(f.users)

	b := f.createUser(t, "uma", models.RoleDev)
	a := f.createUser(t, "val", models.RoleDev)

	audience, err := resolver.Resolve(context.Background(), dto.AudienceRequest{
		Type:    " User ",
		UserIDs: []string{b.ID, "", a.ID, b.ID},
	})
	require.NoError(t, err)
	require.Equal(t, models.AudienceUser, audience.Type)
	require.Equal(t, []string{b.ID, a.ID}, audience.Targets)

	roles, err := resolver.Resolve(context.Background(), dto.AudienceRequest{
		Type:  "ROLE",
		Roles: []string{"staff", "CEO", " Staff "},
	})
	require.NoError(t, err)
	require.Equal(t, models.AudienceRole, roles.Type)
	require.Equal(t, []string{"STAFF", "CEO"}, roles.Targets)
}

func TestAudienceResolverRejectsEmptyRoles(t *testing.T) {
	resolver := NewAudienceResolver(nil)

	_, err := resolver.Resolve(context.Background(), dto.AudienceRequest{Type: "role", Roles: []string{"  "}})
	require.ErrorIs(t, err, ErrAudienceEmpty)

	_, err = resolver.Resolve(context.Background(), dto.AudienceRequest{Type: "", Roles: []string{"DEV"}})
	require.ErrorIs(t, err, ErrInvalidAudienceType)
}
