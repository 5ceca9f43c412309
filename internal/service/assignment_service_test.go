package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
)

func TestAssignIsIdempotentPerUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resource := f.createResource(t, "Go Concurrency")
	u1 := f.createUser(t, "ana", models.RoleDev)
	u2 := f.createUser(t, "bo", models.RoleDesigner)

	payload := dto.AssignRequest{
		ItemKind: "resource",
		ItemIDs:  []string{resource.ID},
		Audience: userAudience(u1.ID, u2.ID),
	}

	first, err := f.assignments.Assign(ctx, payload, manager)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)
	require.Equal(t, 0, first.Skipped)
	require.Empty(t, first.Failed)
	require.Equal(t, "Assigned to 2 user(s).", first.Message)

	second, err := f.assignments.Assign(ctx, payload, manager)
	require.NoError(t, err)
	require.Equal(t, 0, second.Created)
	require.Equal(t, 2, second.Skipped)
	require.Equal(t, "Assigned to 0 user(s). Skipped 2 duplicate(s).", second.Message)

	require.Equal(t, int64(2), f.countAssignments(t))

	// Only the call that wrote rows is audited and announced.
	require.Equal(t, []string{"assignment.created"}, f.activity.actions())
	require.Len(t, f.events.events, 1)
	require.Equal(t, EventAssignmentsCreated, f.events.events[0].Type)
}

func TestAssignDeduplicatesInputs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tool := f.createTool(t, "Figma")
	u1 := f.createUser(t, "cy", models.RoleDesigner)

	response, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "tools",
		ItemIDs:  []string{tool.ID, " " + tool.ID + " "},
		Audience: dto.AudienceRequest{Type: "USER", UserIDs: []string{u1.ID, u1.ID}},
	}, manager)
	require.NoError(t, err)
	require.Equal(t, 1, response.Created)
	require.Equal(t, 0, response.Skipped)
	require.Equal(t, int64(1), f.countAssignments(t))
}

func TestAssignToRolesDoesNotExpandToUsers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.createUser(t, "chief", models.RoleCEO)
	f.createUser(t, "root", models.RoleAdmin)
	f.createUser(t, "sam", models.RoleStaff)
	f.createUser(t, "sue", models.RoleStaff)
	r1 := f.createResource(t, "Onboarding")
	r2 := f.createResource(t, "Security Basics")

	response, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "resource",
		ItemIDs:  []string{r1.ID, r2.ID},
		Audience: roleAudience("ADMIN", "staff"),
	}, manager)
	require.NoError(t, err)
	require.Equal(t, 4, response.Created)
	require.Equal(t, "Assigned to 4 role(s).", response.Message)

	var rows []models.Assignment
	require.NoError(t, f.db.Order("item_id, role").Find(&rows).Error)
	require.Len(t, rows, 4)
	for _, row := range rows {
		require.Equal(t, models.AudienceRole, row.AudienceType)
		require.Empty(t, row.UserID)
		require.Contains(t, []models.Role{models.RoleAdmin, models.RoleStaff}, row.Role)
	}
}

func TestRoleAssignmentsFollowRoleChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	task := f.createTask(t, "Ship the API")
	user := f.createUser(t, "dee", models.RoleDesigner)

	_, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "task",
		ItemIDs:  []string{task.ID},
		Audience: roleAudience("DEV"),
	}, manager)
	require.NoError(t, err)

	before, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Empty(t, before)
	rowsBefore := f.countAssignments(t)

	_, err = f.userService.ChangeRole(ctx, user.ID, dto.UserRoleUpdateRequest{Role: "dev"}, manager)
	require.NoError(t, err)

	after, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, task.ID, after[0].Item.ID)
	require.Equal(t, "Ship the API", after[0].Item.Title)
	require.Equal(t, models.RoleDev, after[0].Assignment.Role)
	require.Nil(t, after[0].Completion)
	require.Equal(t, models.CompletionNotStarted, after[0].Status())
	require.Equal(t, rowsBefore, f.countAssignments(t))
}

func TestDirectAndRoleAudiencesStayIndependent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resource := f.createResource(t, "Brand Guide")
	direct := f.createUser(t, "eve", models.RoleOutreach)
	member := f.createUser(t, "fox", models.RoleFrontend)

	_, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "resource",
		ItemIDs:  []string{resource.ID},
		Audience: userAudience(direct.ID),
	}, manager)
	require.NoError(t, err)

	f.clock.advance(time.Minute)
	response, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "resource",
		ItemIDs:  []string{resource.ID},
		Audience: roleAudience("FRONTEND"),
	}, manager)
	require.NoError(t, err)
	require.Equal(t, 1, response.Created)
	require.Equal(t, 0, response.Skipped)

	directView, err := f.assignments.ListForUser(ctx, direct.ID, "")
	require.NoError(t, err)
	require.Len(t, directView, 1)
	require.Equal(t, models.AudienceUser, directView[0].Assignment.AudienceType)

	memberView, err := f.assignments.ListForUser(ctx, member.ID, "")
	require.NoError(t, err)
	require.Len(t, memberView, 1)
	require.Equal(t, models.AudienceRole, memberView[0].Assignment.AudienceType)
}

func TestAssignReportsMissingItemsWithoutRollingBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resource := f.createResource(t, "Testing in Go")
	user := f.createUser(t, "gil", models.RoleBackend)

	response, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "resource",
		ItemIDs:  []string{resource.ID, "missing-item"},
		Audience: userAudience(user.ID),
	}, manager)
	require.NoError(t, err)
	require.Equal(t, 1, response.Created)
	require.Equal(t, []dto.ItemFailure{{ItemID: "missing-item", Error: "item not found"}}, response.Failed)
	require.Equal(t, "Assigned to 1 user(s). 1 item(s) not found.", response.Message)
	require.Equal(t, int64(1), f.countAssignments(t))
}

func TestAssignFailsWhenNoItemExists(t *testing.T) {
	f := newFixture(t, nil)
	user := f.createUser(t, "hal", models.RoleBackend)

	response, err := f.assignments.Assign(context.Background(), dto.AssignRequest{
		ItemKind: "task",
		ItemIDs:  []string{"nope-1", "nope-2"},
		Audience: userAudience(user.ID),
	}, manager)
	require.ErrorIs(t, err, ErrItemNotFound)
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, response.Failed, 2)
	require.Equal(t, int64(0), f.countAssignments(t))
	require.Empty(t, f.activity.entries)
}

func TestAssignValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resource := f.createResource(t, "Design Systems")
	user := f.createUser(t, "ian", models.RoleDesigner)
	badDate := "next tuesday"

	cases := []struct {
		name    string
		payload dto.AssignRequest
		target  error
	}{
		{
			name:    "no item ids",
			payload: dto.AssignRequest{ItemKind: "resource", ItemIDs: nil, Audience: userAudience(user.ID)},
			target:  ErrValidation,
		},
		{
			name:    "unknown kind",
			payload: dto.AssignRequest{ItemKind: "playlist", ItemIDs: []string{resource.ID}, Audience: userAudience(user.ID)},
			target:  ErrInvalidItemKind,
		},
		{
			name:    "empty user audience",
			payload: dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: dto.AudienceRequest{Type: "user", Roles: []string{"DEV"}}},
			target:  ErrAudienceEmpty,
		},
		{
			name:    "unknown audience type",
			payload: dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: dto.AudienceRequest{Type: "team", UserIDs: []string{user.ID}}},
			target:  ErrInvalidAudienceType,
		},
		{
			name:    "unknown role",
			payload: dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: roleAudience("DEV", "WIZARD")},
			target:  ErrUnknownRole,
		},
		{
			name:    "unknown user",
			payload: dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: userAudience(user.ID, "ghost")},
			target:  ErrUserNotFound,
		},
		{
			name:    "bad due date",
			payload: dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: userAudience(user.ID), DueDate: &badDate},
			target:  ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.assignments.Assign(ctx, tc.payload, manager)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.target), "expected %v, got %v", tc.target, err)
		})
	}

	require.Equal(t, int64(0), f.countAssignments(t))
}

func TestAssignStoresDueDateAndCreator(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	task := f.createTask(t, "Quarterly report")
	user := f.createUser(t, "jo", models.RoleCFO)
	due := "2024-04-01T17:00:00+02:00"

	_, err := f.assignments.Assign(ctx, dto.AssignRequest{
		ItemKind: "task",
		ItemIDs:  []string{task.ID},
		Audience: userAudience(user.ID),
		DueDate:  &due,
	}, manager)
	require.NoError(t, err)

	listed, err := f.assignments.ListByItem(ctx, "task", task.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "manager-1", listed[0].CreatedBy)
	require.NotNil(t, listed[0].DueDate)
	require.True(t, listed[0].DueDate.Equal(time.Date(2024, time.April, 1, 15, 0, 0, 0, time.UTC)))
}

func TestListForUserOrdersNewestFirstAndFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "kim", models.RoleFrontend)
	oldest := f.createResource(t, "HTML")
	middle := f.createTool(t, "VS Code")
	newest := f.createResource(t, "CSS")

	_, err := f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{oldest.ID}, Audience: userAudience(user.ID)}, manager)
	require.NoError(t, err)
	f.clock.advance(time.Hour)
	_, err = f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "tool", ItemIDs: []string{middle.ID}, Audience: roleAudience("FRONTEND")}, manager)
	require.NoError(t, err)
	f.clock.advance(time.Hour)
	_, err = f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{newest.ID}, Audience: userAudience(user.ID)}, manager)
	require.NoError(t, err)

	all, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, itemIDs(all))
	require.Equal(t, "VS Code", all[1].Item.Title)
	require.Equal(t, models.ItemKindTool, all[1].Item.Kind)

	resources, err := f.assignments.ListForUser(ctx, user.ID, "resources")
	require.NoError(t, err)
	require.Equal(t, []string{newest.ID, oldest.ID}, itemIDs(resources))

	_, err = f.assignments.ListForUser(ctx, user.ID, "podcast")
	require.ErrorIs(t, err, ErrInvalidItemKind)

	_, err = f.assignments.ListForUser(ctx, "ghost", "")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestListForUserIncludesCompletion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.createUser(t, "lu", models.RoleIntern)
	resource := f.createResource(t, "Git Basics")

	_, err := f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: roleAudience("INTERN")}, manager)
	require.NoError(t, err)

	listed, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = f.completions.SetStatus(ctx, listed[0].Assignment.ID, user.ID, "in_progress")
	require.NoError(t, err)

	listed, err = f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.NotNil(t, listed[0].Completion)
	require.Equal(t, models.CompletionInProgress, listed[0].Status())
}

func TestListForUserUsesCacheUntilInvalidated(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	cache := NewAssignmentListingCache(client, time.Minute, zerolog.Nop())
	f := newFixture(t, cache)
	ctx := context.Background()

	user := f.createUser(t, "max", models.RoleBackend)
	first := f.createResource(t, "SQL")

	_, err = f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{first.ID}, Audience: userAudience(user.ID)}, manager)
	require.NoError(t, err)

	listed, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// A write behind the service's back is invisible while the cached entry is valid.
	sneaky := f.createResource(t, "Hidden")
	require.NoError(t, f.db.Create(&models.Assignment{
		ItemKind:     models.ItemKindResource,
		ItemID:       sneaky.ID,
		AudienceType: models.AudienceUser,
		UserID:       user.ID,
		CreatedAt:    f.clock.now(),
	}).Error)

	cached, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, cached, 1)

	// Any assignment write through the service orphans every cached listing.
	f.clock.advance(time.Minute)
	second := f.createResource(t, "NoSQL")
	_, err = f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{second.ID}, Audience: roleAudience("BACKEND")}, manager)
	require.NoError(t, err)

	fresh, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, fresh, 3)
	require.Equal(t, second.ID, fresh[0].Item.ID)

	// Completion writes only invalidate the acting user.
	_, err = f.completions.SetStatus(ctx, fresh[0].Assignment.ID, user.ID, "COMPLETE")
	require.NoError(t, err)

	afterCompletion, err := f.assignments.ListForUser(ctx, user.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.CompletionComplete, afterCompletion[0].Status())
}

func TestListByItemAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resource := f.createResource(t, "Kubernetes")
	user := f.createUser(t, "ned", models.RoleDev)

	_, err := f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: userAudience(user.ID)}, manager)
	require.NoError(t, err)
	f.clock.advance(time.Second)
	_, err = f.assignments.Assign(ctx, dto.AssignRequest{ItemKind: "resource", ItemIDs: []string{resource.ID}, Audience: roleAudience("DEV")}, manager)
	require.NoError(t, err)

	listed, err := f.assignments.ListByItem(ctx, "resource", resource.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, models.AudienceRole, listed[0].AudienceType)

	_, err = f.completions.SetStatus(ctx, listed[0].ID, user.ID, "IN_PROGRESS")
	require.NoError(t, err)

	require.NoError(t, f.assignments.Delete(ctx, listed[0].ID, manager))
	require.ErrorIs(t, f.assignments.Delete(ctx, listed[0].ID, manager), ErrAssignmentNotFound)

	var completions int64
	require.NoError(t, f.db.Model(&models.Completion{}).Count(&completions).Error)
	require.Zero(t, completions)

	remaining, err := f.assignments.ListByItem(ctx, "resource", resource.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, user.ID, remaining[0].UserID)

	_, err = f.assignments.ListByItem(ctx, "resource", "missing")
	require.ErrorIs(t, err, ErrItemNotFound)

	require.Contains(t, f.activity.actions(), "assignment.deleted")
}
