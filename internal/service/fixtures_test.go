package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/database"
	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/repository"
)

type stubActivityRecorder struct {
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func (s *stubActivityRecorder) actions() []string {
	actions := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type recordedEvent struct {
	Type    string
	Payload map[string]interface{}
}

type stubPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *stubPublisher) Publish(_ context.Context, eventType string, payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{Type: eventType, Payload: payload})
}

// fixture wires every service against one in-memory database.
type fixture struct {
	db          *gorm.DB
	users       repository.UserRepository
	catalog     repository.CatalogRepository
	assignments AssignmentService
	completions CompletionService
	userService UserService
	catalogSvc  CatalogService
	activity    *stubActivityRecorder
	events      *stubPublisher
	clock       *testClock
}

type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T, cache *AssignmentListingCache) *fixture {
	t.Helper()

	db := newTestDB(t, "assignments")
	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())

	users := repository.NewUserRepository(db)
	catalog := repository.NewCatalogRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	completionRepo := repository.NewCompletionRepository(db)

	activity := &stubActivityRecorder{}
	events := &stubPublisher{}
	clock := &testClock{current: time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)}

	assignments := NewAssignmentService(AssignmentServiceDeps{
		Assignments: assignmentRepo,
		Completions: completionRepo,
		Catalog:     catalog,
		Users:       users,
		Validator:   validate,
		Activity:    activity,
		Cache:       cache,
		Events:      events,
	}, logger)
	if concrete, ok := assignments.(*assignmentService); ok {
		concrete.now = clock.now
	}

	completions := NewCompletionService(assignmentRepo, completionRepo, users, cache, events, logger)
	if concrete, ok := completions.(*completionService); ok {
		concrete.now = clock.now
	}

	return &fixture{
		db:          db,
		users:       users,
		catalog:     catalog,
		assignments: assignments,
		completions: completions,
		userService: NewUserService(users, validate, activity, cache, events, logger),
		catalogSvc:  NewCatalogService(catalog, validate, activity, cache, logger),
		activity:    activity,
		events:      events,
		clock:       clock,
	}
}

func (f *fixture) createUser(t *testing.T, name string, role models.Role) models.User {
	t.Helper()

	user := models.User{Name: name, Email: fmt.Sprintf("%s@agency.test", name), Role: role}
	require.NoError(t, f.users.Create(context.Background(), &user))
	return user
}

func (f *fixture) createResource(t *testing.T, title string) models.LearningResource {
	t.Helper()

	resource := models.LearningResource{Title: title, Type: "course"}
	require.NoError(t, f.catalog.CreateResource(context.Background(), &resource))
	return resource
}

func (f *fixture) createTool(t *testing.T, name string) models.Tool {
	t.Helper()

	tool := models.Tool{Name: name, Category: "design"}
	require.NoError(t, f.catalog.CreateTool(context.Background(), &tool))
	return tool
}

func (f *fixture) createTask(t *testing.T, title string) models.Task {
	t.Helper()

	task := models.Task{Title: title, Priority: models.TaskPriorityHigh}
	require.NoError(t, f.catalog.CreateTask(context.Background(), &task))
	return task
}

func (f *fixture) countAssignments(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.db.Model(&models.Assignment{}).Count(&count).Error)
	return count
}

var manager = ActivityActor{ID: "manager-1", Role: "ceo"}

func userAudience(ids ...string) dto.AudienceRequest {
	return dto.AudienceRequest{Type: "user", UserIDs: ids}
}

func roleAudience(roles ...string) dto.AudienceRequest {
	return dto.AudienceRequest{Type: "role", Roles: roles}
}

func itemIDs(views []dto.VisibleAssignment) []string {
	ids := make([]string, 0, len(views))
	for _, view := range views {
		ids = append(ids, view.Item.ID)
	}
	return ids
}
