package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
)

func TestUserServiceCreateAndChangeRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.userService.Create(ctx, dto.UserCreateRequest{
		Name:  " Xia ",
		Email: "Xia@Agency.test",
		Role:  "designer",
	}, manager)
	require.NoError(t, err)
	require.Equal(t, "Xia", created.Name)
	require.Equal(t, "xia@agency.test", created.Email)
	require.Equal(t, models.RoleDesigner, created.Role)
	require.Equal(t, models.RoleStyles[models.RoleDesigner], created.RoleStyle)

	_, err = f.userService.Create(ctx, dto.UserCreateRequest{Name: "Dup", Email: "XIA@agency.test", Role: "DEV"}, manager)
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.userService.Create(ctx, dto.UserCreateRequest{Name: "Zed", Email: "zed@agency.test", Role: "JANITOR"}, manager)
	require.ErrorIs(t, err, ErrUnknownRole)

	updated, err := f.userService.ChangeRole(ctx, created.ID, dto.UserRoleUpdateRequest{Role: "DEV"}, manager)
	require.NoError(t, err)
	require.Equal(t, models.RoleDev, updated.Role)

	fetched, err := f.userService.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleDev, fetched.Role)

	_, err = f.userService.ChangeRole(ctx, "ghost", dto.UserRoleUpdateRequest{Role: "DEV"}, manager)
	require.ErrorIs(t, err, ErrUserNotFound)

	require.Equal(t, []string{"user.created", "user.role_changed"}, f.activity.actions())
	last := f.activity.entries[1]
	require.Equal(t, "DESIGNER", last.Metadata["from"])
	require.Equal(t, "DEV", last.Metadata["to"])

	require.Len(t, f.events.events, 1)
	require.Equal(t, EventUserRoleChanged, f.events.events[0].Type)
}
