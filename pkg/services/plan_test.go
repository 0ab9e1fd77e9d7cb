package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/followup/pkg/events"
	"github.com/dukex/followup/pkg/guard"
	"github.com/dukex/followup/pkg/lifecycle"
	"github.com/dukex/followup/pkg/mocks"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/dukex/followup/pkg/persistence/file"
	"github.com/dukex/followup/pkg/progress"
	"github.com/dukex/followup/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedClock() time.Time {
	return fixedNow
}

func setupPlanService(t *testing.T, opts ...PlanOption) (*Plan, persistence.Persistence, *models.Template) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	template := testutil.CreateTestTemplate(func(tpl *models.Template) { tpl.ID = "tpl-1" })

	require.NoError(t, p.TemplateRepository().Save(t.Context(), template))

	opts = append([]PlanOption{WithClock(fixedClock)}, opts...)

	return NewPlan(p, testLogger(), opts...), p, template
}

func date(year int, month time.Month, day int) *time.Time {
	value := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	return &value
}

func TestPlan_Create(t *testing.T) {
	t.Parallel()

	service, p, _ := setupPlanService(t)

	detail, err := service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1", "lead-2"},
		StartDate:  date(2024, 1, 10),
		Timezone:   "America/New_York",
	})
	require.NoError(t, err)

	plan := detail.Plan
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, models.PlanStatusScheduled, plan.Status)
	assert.Equal(t, "America/New_York", plan.Timezone)
	require.Len(t, plan.Todo, 8)

	first := plan.Todo[0]
	assert.Equal(t, 1, first.Day)
	assert.Equal(t, models.TaskTypeEmail, first.Type)
	assert.Equal(t, time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC), first.ScheduledFor.UTC())

	for _, task := range plan.Todo {
		assert.GreaterOrEqual(t, task.Day, 1)
		assert.LessOrEqual(t, task.Day, 5)
		assert.Equal(t, models.TaskStatusPending, task.Status)
	}

	assert.Equal(t, 3, detail.View.CurrentDay)
	assert.Equal(t, 5, detail.View.TotalDays)
	assert.True(t, detail.View.CanDelete)
	assert.Equal(t, progress.LabelScheduled, detail.View.StatusLabel)
	assert.Equal(t, "Five day follow up (Runs at 09:00 AM)", detail.View.Title)

	stored, err := p.PlanRepository().GetByID(t.Context(), plan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Todo, 8)
	require.NotNil(t, stored.TemplateSnapshot)
	assert.Equal(t, 5, stored.TemplateSnapshot.NumberOfDaysToRun)
}

func TestPlan_Create_TimezoneFromLead(t *testing.T) {
	t.Parallel()

	service, p, _ := setupPlanService(t)

	require.NoError(t, p.LeadRepository().Save(t.Context(), &models.Lead{ID: "lead-1", Timezone: "Asia/Tokyo"}))

	detail, err := service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1"},
		StartDate:  date(2024, 1, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", detail.Plan.Timezone)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), detail.Plan.Todo[0].ScheduledFor.UTC())
}

func TestPlan_Create_ScheduleOverride(t *testing.T) {
	t.Parallel()

	service, _, _ := setupPlanService(t)

	detail, err := service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1"},
		StartDate:  date(2024, 1, 10),
		Timezone:   "UTC",
		Schedule:   &Schedule{Enabled: true, Time: "15:30", StartDate: date(2024, 2, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC), detail.Plan.Todo[0].ScheduledFor.UTC())
	assert.Equal(t, "15:30", detail.Plan.TemplateSnapshot.TimeOfDayToRun)

	_, err = service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1"},
		Schedule:   &Schedule{Enabled: true, Time: "25:00"},
	})
	require.ErrorIs(t, err, ErrInvalidTimeOfDay)
	assert.True(t, IsValidationError(err))
}

func TestPlan_Create_ValidationErrors(t *testing.T) {
	t.Parallel()

	service, p, _ := setupPlanService(t)

	silent := testutil.CreateTestTemplate(func(tpl *models.Template) {
		tpl.ID = "tpl-silent"
		tpl.NumberOfEmails = 0
		tpl.NumberOfCalls = 0
		tpl.NumberOfWhatsappMessages = 0
	})
	require.NoError(t, p.TemplateRepository().Save(t.Context(), silent))

	tests := []struct {
		name     string
		req      CreatePlanRequest
		expected error
	}{
		{
			name:     "missing template",
			req:      CreatePlanRequest{PersonIDs: []string{"lead-1"}},
			expected: ErrTemplateRequired,
		},
		{
			name:     "no targets",
			req:      CreatePlanRequest{TemplateID: "tpl-1", PersonIDs: []string{""}},
			expected: ErrNoTargets,
		},
		{
			name:     "invalid timezone",
			req:      CreatePlanRequest{TemplateID: "tpl-1", PersonIDs: []string{"lead-1"}, Timezone: "Mars/Olympus"},
			expected: ErrInvalidTimezone,
		},
		{
			name:     "nothing to schedule",
			req:      CreatePlanRequest{TemplateID: "tpl-silent", PersonIDs: []string{"lead-1"}, Timezone: "UTC"},
			expected: ErrNothingToSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Create(t.Context(), tt.req)
			require.ErrorIs(t, err, tt.expected)
			assert.True(t, IsValidationError(err))
			assert.False(t, IsPreconditionError(err))
		})
	}

	_, err := service.Create(t.Context(), CreatePlanRequest{TemplateID: "missing", PersonIDs: []string{"lead-1"}})
	require.Error(t, err)
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestPlan_Create_InFlight(t *testing.T) {
	t.Parallel()

	inFlight := guard.NewMemory()
	service, _, _ := setupPlanService(t, WithGuard(inFlight))

	release, err := inFlight.Acquire(t.Context(), CreationKey("tpl-1", []string{"lead-2", "lead-1"}))
	require.NoError(t, err)

	_, err = service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1", "lead-2"},
		Timezone:   "UTC",
	})
	require.ErrorIs(t, err, ErrMutationInFlight)
	assert.True(t, IsPreconditionError(err))

	release()

	_, err = service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1", "lead-2"},
		Timezone:   "UTC",
	})
	require.NoError(t, err)

	// Create released the key on return.
	again, err := inFlight.Acquire(t.Context(), CreationKey("tpl-1", []string{"lead-1", "lead-2"}))
	require.NoError(t, err)
	again()
}

func TestPlan_Create_PublishesEvent(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(event events.PlanCreated) bool {
		return event.TemplateID == "tpl-1" && event.TaskCount == 4 && len(event.PersonIDs) == 1
	})).Return(nil).Once()

	service, _, _ := setupPlanService(t, WithPublisher(bus))

	_, err := service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1"},
		Timezone:   "UTC",
	})
	require.NoError(t, err)

	bus.AssertExpectations(t)
}

func TestPlan_Create_PublishFailureKeepsPlan(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	service, p, _ := setupPlanService(t, WithPublisher(bus))

	detail, err := service.Create(t.Context(), CreatePlanRequest{
		TemplateID: "tpl-1",
		PersonIDs:  []string{"lead-1"},
		Timezone:   "UTC",
	})
	require.NoError(t, err)

	_, err = p.PlanRepository().GetByID(t.Context(), detail.Plan.ID)
	assert.NoError(t, err)
}

func TestPlan_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   models.PlanStatus
		expected error
	}{
		{name: "scheduled", status: models.PlanStatusScheduled},
		{name: "in progress", status: models.PlanStatusInProgress},
		{name: "completed", status: models.PlanStatusCompleted, expected: ErrPlanNotCancellable},
		{name: "failed", status: models.PlanStatusFailed, expected: ErrPlanNotCancellable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service, p, _ := setupPlanService(t)

			plan := testutil.CreateTestPlan(testutil.WithStatus(tt.status))
			require.NoError(t, p.PlanRepository().Save(t.Context(), plan))

			err := service.Delete(t.Context(), plan.ID)

			if tt.expected != nil {
				require.ErrorIs(t, err, tt.expected)
				assert.True(t, IsPreconditionError(err))

				stored, getErr := p.PlanRepository().GetByID(t.Context(), plan.ID)
				require.NoError(t, getErr)
				assert.Equal(t, tt.status, stored.Status)

				return
			}

			require.NoError(t, err)

			_, err = p.PlanRepository().GetByID(t.Context(), plan.ID)
			assert.True(t, persistence.IsPlanNotFound(err))
		})
	}
}

func TestPlan_Delete_NotFoundAndInFlight(t *testing.T) {
	t.Parallel()

	inFlight := guard.NewMemory()
	service, _, _ := setupPlanService(t, WithGuard(inFlight))

	err := service.Delete(t.Context(), "missing")
	assert.True(t, persistence.IsPlanNotFound(err))

	release, err := inFlight.Acquire(t.Context(), "plan-busy")
	require.NoError(t, err)

	defer release()

	err = service.Delete(t.Context(), "plan-busy")
	require.ErrorIs(t, err, ErrMutationInFlight)
}

func TestPlan_Delete_StatusChangedAfterRead(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	plan := testutil.CreateTestPlan(testutil.WithStatus(models.PlanStatusInProgress))
	changed := persistence.NewPlanError("Delete", plan.ID, persistence.ErrPlanStatusChanged)

	mockPersistence.GetMockPlanRepository().On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	mockPersistence.GetMockPlanRepository().
		On("Delete", mock.Anything, plan.ID, lifecycle.CancellableStatuses).Return(changed)

	bus := &mocks.MockEventBus{}
	service := NewPlan(mockPersistence, testLogger(), WithPublisher(bus), WithClock(fixedClock))

	err := service.Delete(t.Context(), plan.ID)
	require.ErrorIs(t, err, ErrPlanNotCancellable)
	assert.True(t, IsPreconditionError(err))

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlan_Delete_PublishesEvent(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	plan := testutil.CreateTestPlan(testutil.WithStatus(models.PlanStatusInProgress))

	mockPersistence.GetMockPlanRepository().On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	mockPersistence.GetMockPlanRepository().
		On("Delete", mock.Anything, plan.ID, lifecycle.CancellableStatuses).Return(nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, plan.ID, mock.MatchedBy(func(event events.PlanDeleted) bool {
		return event.PlanID == plan.ID && event.Status == models.PlanStatusInProgress
	})).Return(nil)

	service := NewPlan(mockPersistence, testLogger(), WithPublisher(bus), WithClock(fixedClock))

	require.NoError(t, service.Delete(t.Context(), plan.ID))

	mockPersistence.GetMockPlanRepository().AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestPlan_List(t *testing.T) {
	t.Parallel()

	service, p, template := setupPlanService(t)

	withSnapshot := testutil.CreateTestPlan(testutil.WithTasks(
		testutil.CreateTestTask(testutil.Completed(models.TaskStatusSent)),
	))
	withoutSnapshot := testutil.CreateTestPlan(testutil.WithStatus(models.PlanStatusFailed))
	withoutSnapshot.TemplateID = template.ID
	withoutSnapshot.TemplateSnapshot = nil

	require.NoError(t, p.PlanRepository().Save(t.Context(), withSnapshot))
	require.NoError(t, p.PlanRepository().Save(t.Context(), withoutSnapshot))

	response, err := service.List(t.Context(), ListPlansRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), response.TotalCount)
	require.Len(t, response.Plans, 2)

	for _, detail := range response.Plans {
		switch detail.Plan.ID {
		case withSnapshot.ID:
			assert.Equal(t, progress.SourceSnapshot, detail.View.Template.Source)
			assert.Equal(t, 1, detail.View.CumulativeCounts[models.TaskTypeEmail])
			assert.True(t, detail.View.CanDelete)
		case withoutSnapshot.ID:
			assert.Equal(t, progress.SourceReference, detail.View.Template.Source)
			assert.Equal(t, template.Title, detail.View.Title)
			assert.False(t, detail.View.CanDelete)
		default:
			t.Fatalf("unexpected plan %s", detail.Plan.ID)
		}
	}

	invalid := models.PlanStatus("archived")

	_, err = service.List(t.Context(), ListPlansRequest{Status: &invalid})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = service.List(t.Context(), ListPlansRequest{SortBy: "title"})
	require.ErrorIs(t, err, ErrInvalidSortField)
	assert.True(t, IsValidationError(err))

	_, err = service.List(t.Context(), ListPlansRequest{SortOrder: "up"})
	require.ErrorIs(t, err, ErrInvalidSortOrder)
}

func TestPlan_FetchByID(t *testing.T) {
	t.Parallel()

	service, p, _ := setupPlanService(t)

	plan := testutil.CreateTestPlan(testutil.WithTasks(
		testutil.CreateTestTask(testutil.OnDay(1), testutil.Completed(models.TaskStatusCompleted)),
		testutil.CreateTestTask(testutil.OnDay(2), testutil.OfType(models.TaskTypeCall), testutil.Completed(models.TaskStatusCompleted)),
		testutil.CreateTestTask(testutil.OnDay(3), testutil.Completed(models.TaskStatusCompleted)),
	))
	require.NoError(t, p.PlanRepository().Save(t.Context(), plan))

	detail, err := service.FetchByID(t.Context(), plan.ID)
	require.NoError(t, err)

	// 2024-01-10 start, now 2024-01-12 10:00 UTC.
	assert.Equal(t, 3, detail.View.CurrentDay)
	assert.Equal(t, 2, detail.View.CumulativeCounts[models.TaskTypeEmail])
	assert.Equal(t, 1, detail.View.CumulativeCounts[models.TaskTypeCall])

	_, err = service.FetchByID(t.Context(), "missing")
	assert.True(t, persistence.IsPlanNotFound(err))
}

func TestPlan_PlansForLead(t *testing.T) {
	t.Parallel()

	service, p, _ := setupPlanService(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := testutil.CreateTestPlan(
		testutil.WithTasks(testutil.CreateTestTask(testutil.ForLead("lead-1"))),
		testutil.WithTouched(base, base.Add(48*time.Hour)),
	)
	newer := testutil.CreateTestPlan(
		testutil.WithTasks(testutil.CreateTestTask(testutil.ForLead("lead-1"))),
		testutil.WithTouched(base.Add(72*time.Hour), base.Add(72*time.Hour)),
	)
	other := testutil.CreateTestPlan(
		testutil.WithTasks(testutil.CreateTestTask(testutil.ForLead("lead-2"))),
	)

	for _, plan := range []*models.Plan{older, newer, other} {
		require.NoError(t, p.PlanRepository().Save(t.Context(), plan))
	}

	details, err := service.PlansForLead(t.Context(), "lead-1")
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, newer.ID, details[0].Plan.ID)
	assert.Equal(t, older.ID, details[1].Plan.ID)

	none, err := service.PlansForLead(t.Context(), "lead-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPlan_HealthCheck(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.On("HealthCheck", mock.Anything).Return(errors.New("connection refused")).Once()
	mockPersistence.On("HealthCheck", mock.Anything).Return(nil).Once()

	service := NewPlan(mockPersistence, testLogger())

	message, ok := service.HealthCheck(context.Background())
	assert.False(t, ok)
	assert.Contains(t, message, "connection refused")

	message, ok = service.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestCreationKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "create:tpl-1:a,b", CreationKey("tpl-1", []string{"b", "a", "b", ""}))
	assert.Equal(t, CreationKey("tpl-1", []string{"x", "y"}), CreationKey("tpl-1", []string{"y", "x"}))
}
