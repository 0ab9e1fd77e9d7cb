// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/google/uuid"
)

// CreateTestTemplate creates a Template with default values that can be overridden.
func CreateTestTemplate(overrides ...func(*models.Template)) *models.Template {
	template := &models.Template{
		ID:                       uuid.New().String(),
		Title:                    "Five day follow up",
		NumberOfDaysToRun:        5,
		TimeOfDayToRun:           "09:00",
		NumberOfEmails:           3,
		NumberOfCalls:            1,
		NumberOfWhatsappMessages: 0,
		Metadata:                 map[string]any{},
	}

	for _, override := range overrides {
		override(template)
	}

	return template
}

// CreateTestPlan creates a scheduled Plan starting on 2024-01-10 UTC with no tasks.
func CreateTestPlan(overrides ...func(*models.Plan)) *models.Plan {
	created := time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)

	plan := &models.Plan{
		ID:         uuid.New().String(),
		TemplateID: "template-1",
		TemplateSnapshot: &models.TemplateSnapshot{
			Title:             "Five day follow up",
			NumberOfDaysToRun: 5,
			TimeOfDayToRun:    "09:00",
			NumberOfEmails:    3,
			NumberOfCalls:     1,
		},
		StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Timezone:  "UTC",
		Status:    models.PlanStatusScheduled,
		Todo:      []*models.Task{},
		Metadata:  map[string]any{},
		CreatedAt: created,
		UpdatedAt: created,
	}

	for _, override := range overrides {
		override(plan)
	}

	return plan
}

// CreateTestTask creates a pending email Task for day 1 that can be overridden.
func CreateTestTask(overrides ...func(*models.Task)) *models.Task {
	task := &models.Task{
		ID:       uuid.New().String(),
		Type:     models.TaskTypeEmail,
		Day:      1,
		PersonID: models.RefID("lead-1"),
		Status:   models.TaskStatusPending,
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// WithStatus sets the plan status.
func WithStatus(status models.PlanStatus) func(*models.Plan) {
	return func(p *models.Plan) {
		p.Status = status
	}
}

// WithTasks replaces the plan todo list.
func WithTasks(tasks ...*models.Task) func(*models.Plan) {
	return func(p *models.Plan) {
		p.Todo = tasks
	}
}

// WithTouched sets the creation and update timestamps of the plan.
func WithTouched(createdAt, updatedAt time.Time) func(*models.Plan) {
	return func(p *models.Plan) {
		p.CreatedAt = createdAt
		p.UpdatedAt = updatedAt
	}
}

// Completed marks a task as completed with the given status.
func Completed(status models.TaskStatus) func(*models.Task) {
	return func(t *models.Task) {
		t.IsComplete = true
		t.Status = status
	}
}

// OnDay places a task on a day of the plan.
func OnDay(day int) func(*models.Task) {
	return func(t *models.Task) {
		t.Day = day
	}
}

// OfType sets the task channel.
func OfType(taskType models.TaskType) func(*models.Task) {
	return func(t *models.Task) {
		t.Type = taskType
	}
}

// ForLead points the task at a lead by id.
func ForLead(leadID string) func(*models.Task) {
	return func(t *models.Task) {
		t.PersonID = models.RefID(leadID)
	}
}
