package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

func TestActivityServiceRecordMasksSecrets(t *testing.T) {
	db := newTestDB(t, "activity")
	svc := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    "manager-1",
		ActorRole:  "Admin",
		Action:     "User.Created",
		EntityType: "user",
		EntityID:   "user-5",
		Metadata: map[string]interface{}{
			"email":        "someone@agency.test",
			"invite_token": "abc",
			"role":         "DEV",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "***", entry.Metadata["invite_token"])
	require.Equal(t, "DEV", entry.Metadata["role"])
	require.Equal(t, "ADMIN", entry.ActorRole)
	require.Equal(t, "user.created", entry.Action)

	_, err = svc.Record(context.Background(), ActivityEntry{EntityType: "user"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t, "activity_list")
	svc := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, ActivityEntry{ActorID: "manager-1", Action: "assignment.created", EntityType: "resource"})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, ActivityEntry{ActorID: "manager-2", Action: "catalog.deleted", EntityType: "tool", EntityID: "tool-1"})
	require.NoError(t, err)

	page, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 2, Action: "ASSIGNMENT.CREATED"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(3), page.Pagination.TotalItems)
	require.Equal(t, 2, page.Pagination.TotalPages)

	byActor, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10, ActorID: "manager-2"})
	require.NoError(t, err)
	require.Len(t, byActor.Items, 1)
	require.Equal(t, "tool-1", byActor.Items[0].EntityID)
	require.Equal(t, "SYSTEM", byActor.Items[0].ActorRole)
}
