// Package lifecycle owns the plan status state machine and deletion eligibility.
package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/followup/pkg/models"
)

var (
	// ErrNotCancellable is returned when deleting a plan that already finished.
	ErrNotCancellable = errors.New("plan no longer cancellable")

	// ErrInvalidTransition is returned for status changes the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid plan status transition")

	// ErrUnknownTask is returned when an observed task update names a task the plan lacks.
	ErrUnknownTask = errors.New("task not found in plan")
)

var transitions = map[models.PlanStatus][]models.PlanStatus{
	models.PlanStatusScheduled:  {models.PlanStatusInProgress, models.PlanStatusFailed},
	models.PlanStatusInProgress: {models.PlanStatusCompleted, models.PlanStatusFailed},
}

// CancellableStatuses are the statuses a plan may be deleted from. Repositories receive
// them so the status check and the delete happen in one step.
var CancellableStatuses = []models.PlanStatus{models.PlanStatusScheduled, models.PlanStatusInProgress}

// CanDelete reports whether a plan may still be deleted.
func CanDelete(plan *models.Plan) bool {
	return slices.Contains(CancellableStatuses, plan.Status)
}

// CheckDelete returns ErrNotCancellable when the plan has left the cancellable states.
func CheckDelete(plan *models.Plan) error {
	if !CanDelete(plan) {
		return fmt.Errorf("%w: plan %s is %s", ErrNotCancellable, plan.ID, plan.Status)
	}

	return nil
}

// CanTransition reports whether the state machine allows moving from one status to another.
func CanTransition(from, to models.PlanStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(status models.PlanStatus) bool {
	return len(transitions[status]) == 0
}

// ObserveStatus records a status change reported by the delivery subsystem. Re-reporting
// the current status is a no-op and returns false.
func ObserveStatus(plan *models.Plan, to models.PlanStatus, lastResult string, at time.Time) (bool, error) {
	if !to.IsValid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	if plan.Status == to && lastResult == "" {
		return false, nil
	}

	if IsTerminal(plan.Status) {
		return false, fmt.Errorf("%w: plan is already %s", ErrInvalidTransition, plan.Status)
	}

	if plan.Status != to && !CanTransition(plan.Status, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, plan.Status, to)
	}

	plan.Status = to

	if lastResult != "" {
		if plan.Metadata == nil {
			plan.Metadata = map[string]any{}
		}

		plan.Metadata[models.MetadataLastResult] = lastResult
	}

	plan.UpdatedAt = at.UTC()

	return true, nil
}

// TaskUpdate is a completion fact reported for one task.
type TaskUpdate struct {
	TaskID       string
	Status       models.TaskStatus
	IsComplete   bool
	ScheduledFor *time.Time
}

// ObserveTask records a task completion fact on the plan.
func ObserveTask(plan *models.Plan, update TaskUpdate, at time.Time) error {
	task := plan.TaskByID(update.TaskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, update.TaskID)
	}

	if update.Status != "" {
		task.Status = update.Status
	}

	task.IsComplete = update.IsComplete

	if update.ScheduledFor != nil {
		scheduledFor := update.ScheduledFor.UTC()
		task.ScheduledFor = &scheduledFor
	}

	plan.UpdatedAt = at.UTC()

	return nil
}
