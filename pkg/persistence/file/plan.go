package file

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/google/uuid"
)

// PlanRepository handles plan-related file operations.
type PlanRepository struct {
	plans *collection
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(root string) *PlanRepository {
	return &PlanRepository{plans: newCollection(root, "plans")}
}

// ListPlans returns paginated and filtered plans with in-memory operations.
func (pr *PlanRepository) ListPlans(ctx context.Context, opts persistence.ListPlansOptions) (*persistence.PlanListResult, error) {
	err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	allPlans, err := pr.All(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Plan, 0, len(allPlans))

	for _, plan := range allPlans {
		if opts.Status != nil && plan.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, plan)
	}

	sortPlans(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	if opts.Offset >= len(filtered) {
		return &persistence.PlanListResult{
			Plans:       make([]*models.Plan, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.PlanListResult{
		Plans:       filtered[opts.Offset:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

// sortPlans sorts plans in-place based on the specified field and order.
func sortPlans(plans []*models.Plan, sortBy, sortOrder string) {
	key := func(plan *models.Plan) time.Time {
		switch sortBy {
		case "updated_at":
			return plan.UpdatedAt
		case "start_date":
			return plan.StartDate
		default:
			return plan.CreatedAt
		}
	}

	sort.SliceStable(plans, func(i, j int) bool {
		if sortOrder == "desc" {
			return key(plans[i]).After(key(plans[j]))
		}

		return key(plans[i]).Before(key(plans[j]))
	})
}

// All loads every stored plan.
func (pr *PlanRepository) All(ctx context.Context) ([]*models.Plan, error) {
	ids, err := pr.plans.ids()
	if err != nil {
		return nil, fmt.Errorf("failed to list plan files: %w", err)
	}

	plans := make([]*models.Plan, 0, len(ids))

	for _, id := range ids {
		plan, err := pr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsPlanNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
		}

		plans = append(plans, plan)
	}

	return plans, nil
}

// GetByID retrieves a plan by its ID from the file system.
func (pr *PlanRepository) GetByID(_ context.Context, planID string) (*models.Plan, error) {
	var plan models.Plan

	found, err := pr.plans.read(planID, &plan)
	if err != nil {
		return nil, persistence.NewPlanError("GetByID", planID, err)
	}

	if !found {
		return nil, persistence.NewPlanError("GetByID", planID, persistence.ErrPlanNotFound)
	}

	return &plan, nil
}

// Save saves a plan to the file system.
func (pr *PlanRepository) Save(_ context.Context, plan *models.Plan) error {
	now := time.Now().UTC()

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}

	if plan.UpdatedAt.Before(plan.CreatedAt) {
		plan.UpdatedAt = plan.CreatedAt
	}

	if plan.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate plan ID: %w", err)
		}

		plan.ID = id.String()
	}

	err := pr.plans.write(plan.ID, plan)
	if err != nil {
		return persistence.NewPlanError("Save", plan.ID, err)
	}

	return nil
}

// Update overwrites a plan that still exists.
func (pr *PlanRepository) Update(_ context.Context, plan *models.Plan) error {
	found, err := pr.plans.update(plan.ID, plan)
	if err != nil {
		return persistence.NewPlanError("Update", plan.ID, err)
	}

	if !found {
		return persistence.NewPlanError("Update", plan.ID, persistence.ErrPlanNotFound)
	}

	return nil
}

// Delete removes a plan by its ID, optionally only while it is in one of statuses.
func (pr *PlanRepository) Delete(_ context.Context, id string, statuses ...models.PlanStatus) error {
	var current models.Plan

	found, removed, err := pr.plans.removeIf(id, &current, func() bool {
		return len(statuses) == 0 || slices.Contains(statuses, current.Status)
	})
	if err != nil {
		return persistence.NewPlanError("Delete", id, err)
	}

	if !found {
		return persistence.NewPlanError("Delete", id, persistence.ErrPlanNotFound)
	}

	if !removed {
		return persistence.NewPlanError("Delete", id, fmt.Errorf("%w: plan is %s", persistence.ErrPlanStatusChanged, current.Status))
	}

	return nil
}
