package file

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/dukex/followup/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	// Test with regular path
	persistence := NewPersistence("/tmp/test")
	fp := persistence.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	persistence = NewPersistence("file:///tmp/test")
	fp = persistence.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	persistence := NewPersistence("./test-data")
	err := persistence.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	err := NewPersistence(t.TempDir()).HealthCheck(t.Context())
	assert.NoError(t, err)

	err = NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context())
	assert.Error(t, err)
}

func TestPersistence_SavePlan(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)

	plan := testutil.CreateTestPlan(
		testutil.WithTouched(time.Time{}, time.Time{}),
		testutil.WithTasks(testutil.CreateTestTask()),
	)

	err := p.PlanRepository().Save(t.Context(), plan)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(testDir, "plans", plan.ID+".json"))
	assert.False(t, plan.CreatedAt.IsZero())
	assert.Equal(t, plan.CreatedAt, plan.UpdatedAt)
}

func TestPersistence_SavePlan_GeneratesID(t *testing.T) {
	p := NewPersistence(t.TempDir())

	plan := testutil.CreateTestPlan(func(plan *models.Plan) { plan.ID = "" })

	err := p.PlanRepository().Save(t.Context(), plan)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
}

func TestPersistence_PlanRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	scheduledFor := time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)
	plan := testutil.CreateTestPlan(
		testutil.WithTasks(
			testutil.CreateTestTask(func(task *models.Task) { task.ScheduledFor = &scheduledFor }),
			testutil.CreateTestTask(func(task *models.Task) {
				task.PersonID = models.PersonRef{ID: "lead-2", Person: &models.Lead{ID: "lead-2", CompanyID: "acme"}}
			}),
		),
		func(plan *models.Plan) {
			plan.Template = testutil.CreateTestTemplate()
			plan.Metadata[models.MetadataLastResult] = models.LastResultRescheduled
		},
	)

	require.NoError(t, p.PlanRepository().Save(ctx, plan))

	loaded, err := p.PlanRepository().GetByID(ctx, plan.ID)
	require.NoError(t, err)

	assert.Equal(t, plan.TemplateSnapshot, loaded.TemplateSnapshot)
	assert.Nil(t, loaded.Template, "populated template references are not persisted")
	assert.True(t, plan.StartDate.Equal(loaded.StartDate))
	require.Len(t, loaded.Todo, 2)
	assert.True(t, scheduledFor.Equal(*loaded.Todo[0].ScheduledFor))
	assert.Equal(t, "lead-2", loaded.Todo[1].PersonID.LeadID())
	require.NotNil(t, loaded.Todo[1].PersonID.Person)
	assert.Equal(t, "acme", loaded.Todo[1].PersonID.Person.CompanyID)
	assert.Equal(t, models.LastResultRescheduled, loaded.LastResult())
}

func TestPersistence_GetPlan_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	plan, err := p.PlanRepository().GetByID(t.Context(), "missing")
	assert.Nil(t, plan)
	assert.True(t, persistence.IsPlanNotFound(err))
}

func TestPersistence_DeletePlan(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	plan := testutil.CreateTestPlan()
	require.NoError(t, p.PlanRepository().Save(ctx, plan))

	require.NoError(t, p.PlanRepository().Delete(ctx, plan.ID))

	_, err := p.PlanRepository().GetByID(ctx, plan.ID)
	assert.True(t, persistence.IsPlanNotFound(err))

	err = p.PlanRepository().Delete(ctx, plan.ID)
	assert.True(t, persistence.IsPlanNotFound(err))
}

func TestPersistence_UpdatePlan(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	plan := testutil.CreateTestPlan()

	err := p.PlanRepository().Update(ctx, plan)
	require.ErrorIs(t, err, persistence.ErrPlanNotFound)

	_, err = p.PlanRepository().GetByID(ctx, plan.ID)
	require.ErrorIs(t, err, persistence.ErrPlanNotFound)

	require.NoError(t, p.PlanRepository().Save(ctx, plan))

	plan.Status = models.PlanStatusInProgress
	require.NoError(t, p.PlanRepository().Update(ctx, plan))

	stored, err := p.PlanRepository().GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusInProgress, stored.Status)
}

func TestPersistence_DeletePlanWithStatus(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	cancellable := []models.PlanStatus{models.PlanStatusScheduled, models.PlanStatusInProgress}

	done := testutil.CreateTestPlan(testutil.WithStatus(models.PlanStatusCompleted))
	require.NoError(t, p.PlanRepository().Save(ctx, done))

	err := p.PlanRepository().Delete(ctx, done.ID, cancellable...)
	require.ErrorIs(t, err, persistence.ErrPlanStatusChanged)

	_, err = p.PlanRepository().GetByID(ctx, done.ID)
	require.NoError(t, err)

	running := testutil.CreateTestPlan(testutil.WithStatus(models.PlanStatusInProgress))
	require.NoError(t, p.PlanRepository().Save(ctx, running))
	require.NoError(t, p.PlanRepository().Delete(ctx, running.ID, cancellable...))

	err = p.PlanRepository().Delete(ctx, running.ID, cancellable...)
	require.ErrorIs(t, err, persistence.ErrPlanNotFound)
}

func TestPersistence_Templates(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	templates, err := p.TemplateRepository().GetTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, templates)

	second := testutil.CreateTestTemplate(func(tpl *models.Template) { tpl.ID = "b"; tpl.Title = "Warm leads" })
	first := testutil.CreateTestTemplate(func(tpl *models.Template) { tpl.ID = "a"; tpl.Title = "Cold leads" })

	require.NoError(t, p.TemplateRepository().Save(ctx, second))
	require.NoError(t, p.TemplateRepository().Save(ctx, first))

	templates, err = p.TemplateRepository().GetTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Cold leads", templates[0].Title)
	assert.Equal(t, "Warm leads", templates[1].Title)

	_, err = p.TemplateRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestPersistence_Leads(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	leads := []*models.Lead{
		{ID: "l1", CompanyID: "acme", Timezone: "America/New_York"},
		{ID: "l2", CompanyID: "acme"},
		{ID: "l3", CompanyName: "Globex"},
		{ID: "l4", CompanyID: "initech"},
	}
	for _, lead := range leads {
		require.NoError(t, p.LeadRepository().Save(ctx, lead))
	}

	lead, err := p.LeadRepository().GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", lead.Timezone)

	byID, err := p.LeadRepository().ListByCompany(ctx, "acme", "")
	require.NoError(t, err)
	assert.Len(t, byID, 2)

	byName, err := p.LeadRepository().ListByCompany(ctx, "", "Globex")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "l3", byName[0].ID)

	_, err = p.LeadRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsLeadNotFound(err))
}
