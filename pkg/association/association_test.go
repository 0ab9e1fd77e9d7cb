package association_test

import (
	"testing"
	"time"

	"github.com/dukex/followup/pkg/association"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

func touched(hour int) func(*models.Plan) {
	at := time.Date(2024, 1, 10, hour, 0, 0, 0, time.UTC)

	return testutil.WithTouched(at, at)
}

func TestPlansForLead_OnlyMatchingPlans(t *testing.T) {
	t.Parallel()

	planA := testutil.CreateTestPlan(testutil.WithTasks(testutil.CreateTestTask(testutil.ForLead("lead-a"))))
	planB := testutil.CreateTestPlan(testutil.WithTasks(
		testutil.CreateTestTask(testutil.ForLead("lead-a")),
		testutil.CreateTestTask(testutil.ForLead("lead-x")),
	))

	assert.Equal(t, []*models.Plan{planB}, association.PlansForLead([]*models.Plan{planA, planB}, "lead-x"))
	assert.Empty(t, association.PlansForLead([]*models.Plan{planA, planB}, "lead-z"))
	assert.Empty(t, association.PlansForLead([]*models.Plan{planA, planB}, ""))
}

func TestPlansForLead_MostRecentlyTouchedFirst(t *testing.T) {
	t.Parallel()

	task := func() func(*models.Plan) {
		return testutil.WithTasks(testutil.CreateTestTask(testutil.ForLead("lead-x")))
	}

	old := testutil.CreateTestPlan(task(), touched(8))
	tieFirst := testutil.CreateTestPlan(task(), touched(10))
	tieSecond := testutil.CreateTestPlan(task(), touched(10))
	updated := testutil.CreateTestPlan(task(), testutil.WithTouched(
		time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	))

	result := association.PlansForLead([]*models.Plan{old, tieFirst, nil, tieSecond, updated}, "lead-x")

	assert.Equal(t, []*models.Plan{updated, tieFirst, tieSecond, old}, result)
}

func TestIncludes_EmbeddedLead(t *testing.T) {
	t.Parallel()

	plan := testutil.CreateTestPlan(testutil.WithTasks(testutil.CreateTestTask(func(task *models.Task) {
		task.PersonID = models.PersonRef{Person: &models.Lead{ID: "lead-embedded"}}
	})))

	assert.True(t, association.Includes(plan, "lead-embedded"))
	assert.Equal(t, []string{"lead-embedded"}, association.LeadIDs(plan))
}

func TestLeadIDs(t *testing.T) {
	t.Parallel()

	plan := testutil.CreateTestPlan(testutil.WithTasks(
		testutil.CreateTestTask(testutil.ForLead("lead-2")),
		testutil.CreateTestTask(testutil.ForLead("lead-1")),
		testutil.CreateTestTask(testutil.ForLead("lead-2")),
	))

	assert.Equal(t, []string{"lead-2", "lead-1"}, association.LeadIDs(plan))
}

func TestSameCompany(t *testing.T) {
	t.Parallel()

	reference := &models.Lead{ID: "lead-1", CompanyID: "acme", CompanyName: "Acme"}
	leads := []*models.Lead{
		reference,
		{ID: "lead-2", CompanyID: "acme"},
		{ID: "lead-3", CompanyID: "globex", CompanyName: "Acme"},
		{ID: "lead-4", CompanyName: "Acme"},
		{ID: "lead-5"},
		nil,
	}

	matches := association.SameCompany(leads, reference)

	ids := make([]string, 0, len(matches))
	for _, lead := range matches {
		ids = append(ids, lead.ID)
	}

	assert.Equal(t, []string{"lead-2", "lead-4"}, ids)
}
