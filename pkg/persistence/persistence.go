// Package persistence provides the data storage abstraction for templates, plans and leads.
package persistence

import (
	"context"

	"github.com/dukex/followup/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	PlanRepository() PlanRepository
	TemplateRepository() TemplateRepository
	LeadRepository() LeadRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PlanRepository stores plans together with their task lists.
type PlanRepository interface {
	ListPlans(ctx context.Context, opts ListPlansOptions) (*PlanListResult, error)
	// All returns every plan; the association index and the dispatcher scan it.
	All(ctx context.Context) ([]*models.Plan, error)
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	// Save inserts or replaces a plan.
	Save(ctx context.Context, plan *models.Plan) error
	// Update overwrites an existing plan and fails with ErrPlanNotFound when it is gone.
	Update(ctx context.Context, plan *models.Plan) error
	// Delete removes a plan. When statuses are given the plan is removed only while its
	// status is one of them, otherwise ErrPlanStatusChanged is returned.
	Delete(ctx context.Context, id string, statuses ...models.PlanStatus) error
}

// TemplateRepository is the read side of the template catalog plus seeding.
type TemplateRepository interface {
	GetTemplates(ctx context.Context) ([]*models.Template, error)
	GetByID(ctx context.Context, id string) (*models.Template, error)
	Save(ctx context.Context, template *models.Template) error
}

// LeadRepository stores the lead fields scheduling depends on.
type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	ListByCompany(ctx context.Context, companyID, companyName string) ([]*models.Lead, error)
	Save(ctx context.Context, lead *models.Lead) error
}

// ListPlansOptions controls pagination, filtering and sorting of plan listings.
type ListPlansOptions struct {
	Limit     int
	Offset    int
	Status    *models.PlanStatus
	SortBy    string
	SortOrder string
}

// PlanListResult is one page of plans.
type PlanListResult struct {
	Plans       []*models.Plan `json:"plans"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SortFields lists the plan columns a listing may be sorted by.
var SortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"start_date": true,
}

// Normalize applies defaults and rejects unknown sort parameters.
func (o *ListPlansOptions) Normalize() error {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}

	o.Limit = min(o.Limit, MaxListLimit)

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	if !SortFields[o.SortBy] {
		return ErrInvalidSortField
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return ErrInvalidSortOrder
	}

	return nil
}
