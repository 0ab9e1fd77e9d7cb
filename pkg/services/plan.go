package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/followup/pkg/association"
	"github.com/dukex/followup/pkg/eventbus"
	"github.com/dukex/followup/pkg/events"
	"github.com/dukex/followup/pkg/guard"
	"github.com/dukex/followup/pkg/lifecycle"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/otelhelper"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/dukex/followup/pkg/planner"
	"github.com/dukex/followup/pkg/progress"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Plan creates, reads and cancels follow-up plans.
type Plan struct {
	persistence  persistence.Persistence
	materializer *planner.Materializer
	guard        guard.Guard
	publisher    eventbus.EventPublisher
	tracer       trace.Tracer
	logger       *slog.Logger
	now          func() time.Time
}

type PlanOption func(*Plan)

// WithGuard replaces the default in-memory in-flight guard.
func WithGuard(g guard.Guard) PlanOption {
	return func(p *Plan) {
		p.guard = g
	}
}

// WithPublisher enables plan.created and plan.deleted notifications.
func WithPublisher(publisher eventbus.EventPublisher) PlanOption {
	return func(p *Plan) {
		p.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) PlanOption {
	return func(p *Plan) {
		p.tracer = tracer
	}
}

// WithClock fixes "now" for materialization and progress derivation.
func WithClock(now func() time.Time) PlanOption {
	return func(p *Plan) {
		p.now = now
	}
}

// NewPlan creates a new plan service.
func NewPlan(persistence persistence.Persistence, logger *slog.Logger, opts ...PlanOption) *Plan {
	p := &Plan{
		persistence: persistence,
		guard:       guard.NewMemory(),
		tracer:      otelhelper.NoopTracer(),
		logger:      logger.With("module", "plan_service"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.materializer = planner.New(planner.WithClock(p.now))

	return p
}

// HealthCheck checks the health of the persistence layer.
func (p *Plan) HealthCheck(ctx context.Context) (string, bool) {
	if p.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := p.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Schedule overrides the template's run time and the plan start date.
type Schedule struct {
	Enabled   bool
	Time      string
	StartDate *time.Time
}

// CreatePlanRequest contains the inputs of a plan creation.
type CreatePlanRequest struct {
	TemplateID string
	PersonIDs  []string
	StartDate  *time.Time
	Timezone   string
	Schedule   *Schedule
}

// View is the derived, never persisted, read model of a plan.
type View struct {
	progress.Summary

	CanDelete bool `json:"canDelete"`
}

// PlanDetail pairs a stored plan with its view at read time.
type PlanDetail struct {
	Plan *models.Plan `json:"plan"`
	View View         `json:"view"`
}

// ListPlansRequest contains options for listing plans.
type ListPlansRequest struct {
	Limit     int
	Offset    int
	Status    *models.PlanStatus
	SortBy    string
	SortOrder string
}

// ListPlansResponse contains the result of listing plans.
type ListPlansResponse struct {
	Plans       []*PlanDetail `json:"plans"`
	TotalCount  int64         `json:"total_count"`
	HasNextPage bool          `json:"has_next_page"`
}

// CreationKey identifies a creation request for the in-flight guard: the template id plus
// the sorted distinct person ids.
func CreationKey(templateID string, personIDs []string) string {
	ids := make([]string, 0, len(personIDs))

	for _, id := range personIDs {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return "create:" + templateID + ":" + strings.Join(ids, ",")
}

// Create materializes the template for the given leads and stores the resulting plan.
func (p *Plan) Create(ctx context.Context, req CreatePlanRequest) (*PlanDetail, error) {
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	if req.TemplateID == "" {
		return nil, NewValidationError("CreatePlan", "TEMPLATE_REQUIRED", "select a template", ErrTemplateRequired)
	}

	if !slices.ContainsFunc(req.PersonIDs, func(id string) bool { return id != "" }) {
		return nil, NewValidationError("CreatePlan", "NO_TARGETS", "select at least one target", ErrNoTargets)
	}

	release, err := p.acquire(ctx, CreationKey(req.TemplateID, req.PersonIDs))
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "plan.create",
		attribute.String(otelhelper.TemplateIDKey, req.TemplateID),
	)
	defer span.End()

	template, err := p.persistence.TemplateRepository().GetByID(ctx, req.TemplateID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	timezone, err := p.resolveTimezone(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	planReq := planner.Request{
		Template:  template,
		PersonIDs: req.PersonIDs,
		StartDate: req.StartDate,
		Timezone:  timezone,
	}

	if req.Schedule != nil && req.Schedule.Enabled {
		if _, err := models.ParseTimeOfDay(req.Schedule.Time); err != nil {
			return nil, NewValidationError("CreatePlan", "INVALID_TIME_OF_DAY", err.Error(), ErrInvalidTimeOfDay)
		}

		planReq.TimeOfDay = req.Schedule.Time

		if req.Schedule.StartDate != nil {
			planReq.StartDate = req.Schedule.StartDate
		}
	}

	plan, err := p.materializer.Materialize(planReq)
	if err != nil {
		err = translatePlannerError(err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	err = p.persistence.PlanRepository().Save(ctx, plan)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	span.SetAttributes(
		attribute.String(otelhelper.PlanIDKey, plan.ID),
		attribute.Int(otelhelper.TaskCountKey, len(plan.Todo)),
	)

	p.logger.InfoContext(ctx, "Plan created",
		"plan_id", plan.ID,
		"template_id", template.ID,
		"tasks", len(plan.Todo),
		"timezone", plan.Timezone,
	)

	p.publish(ctx, plan.ID, events.PlanCreated{
		BaseEvent:  events.NewBaseEvent(events.PlanCreatedEvent, plan.ID),
		TemplateID: template.ID,
		PersonIDs:  association.LeadIDs(plan),
		TaskCount:  len(plan.Todo),
		StartDate:  plan.StartDate,
		Timezone:   plan.Timezone,
	})

	plan.Template = template

	return p.detail(plan), nil
}

// resolveTimezone picks the request zone, then the first target lead's zone; an empty
// result means the server local zone.
func (p *Plan) resolveTimezone(ctx context.Context, req CreatePlanRequest) (string, error) {
	if req.Timezone != "" {
		return req.Timezone, nil
	}

	for _, personID := range req.PersonIDs {
		if personID == "" {
			continue
		}

		lead, err := p.persistence.LeadRepository().GetByID(ctx, personID)
		if err != nil {
			if persistence.IsLeadNotFound(err) {
				return "", nil
			}

			return "", fmt.Errorf("failed to load lead %s: %w", personID, err)
		}

		return lead.Timezone, nil
	}

	return "", nil
}

// List returns one page of plans together with their views.
func (p *Plan) List(ctx context.Context, req ListPlansRequest) (*ListPlansResponse, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, NewValidationError("ListPlans", "INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
	}

	result, err := p.persistence.PlanRepository().ListPlans(ctx, persistence.ListPlansOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrInvalidSortField):
			return nil, NewValidationError("ListPlans", "INVALID_SORT_FIELD",
				fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, start_date", req.SortBy),
				ErrInvalidSortField)
		case errors.Is(err, persistence.ErrInvalidSortOrder):
			return nil, NewValidationError("ListPlans", "INVALID_SORT_ORDER",
				fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
				ErrInvalidSortOrder)
		default:
			return nil, fmt.Errorf("failed to list plans: %w", err)
		}
	}

	return &ListPlansResponse{
		Plans:       p.details(ctx, result.Plans),
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// FetchByID returns a plan with its view.
func (p *Plan) FetchByID(ctx context.Context, id string) (*PlanDetail, error) {
	plan, err := p.persistence.PlanRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.populateTemplate(ctx, plan, map[string]*models.Template{})

	return p.detail(plan), nil
}

// Delete cancels a plan that is still scheduled or in progress.
func (p *Plan) Delete(ctx context.Context, id string) error {
	release, err := p.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "plan.delete",
		attribute.String(otelhelper.PlanIDKey, id),
	)
	defer span.End()

	plan, err := p.persistence.PlanRepository().GetByID(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	err = lifecycle.CheckDelete(plan)
	if err != nil {
		otelhelper.SetError(span, err)

		return NewPreconditionError("DeletePlan", "PLAN_NOT_CANCELLABLE", "plan no longer cancellable", ErrPlanNotCancellable)
	}

	err = p.persistence.PlanRepository().Delete(ctx, id, lifecycle.CancellableStatuses...)
	if err != nil {
		otelhelper.SetError(span, err)

		if persistence.IsPlanStatusChanged(err) {
			return NewPreconditionError("DeletePlan", "PLAN_NOT_CANCELLABLE", "plan no longer cancellable", ErrPlanNotCancellable)
		}

		return err
	}

	p.logger.InfoContext(ctx, "Plan deleted", "plan_id", id, "status", plan.Status)

	p.publish(ctx, id, events.PlanDeleted{
		BaseEvent: events.NewBaseEvent(events.PlanDeletedEvent, id),
		Status:    plan.Status,
	})

	return nil
}

// PlansForLead returns the plans targeting the lead, most recently touched first.
func (p *Plan) PlansForLead(ctx context.Context, leadID string) ([]*PlanDetail, error) {
	plans, err := p.persistence.PlanRepository().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}

	return p.details(ctx, association.PlansForLead(plans, leadID)), nil
}

// ViewOf derives the view of a plan at the service clock.
func (p *Plan) ViewOf(plan *models.Plan) View {
	return View{
		Summary:   progress.Summarize(plan, p.now()),
		CanDelete: lifecycle.CanDelete(plan),
	}
}

func (p *Plan) detail(plan *models.Plan) *PlanDetail {
	return &PlanDetail{Plan: plan, View: p.ViewOf(plan)}
}

func (p *Plan) details(ctx context.Context, plans []*models.Plan) []*PlanDetail {
	templates := map[string]*models.Template{}
	details := make([]*PlanDetail, 0, len(plans))

	for _, plan := range plans {
		p.populateTemplate(ctx, plan, templates)
		details = append(details, p.detail(plan))
	}

	return details
}

// populateTemplate attaches the live template so views can fall back to it when the
// snapshot is missing fields. Lookup failures leave the reference empty.
func (p *Plan) populateTemplate(ctx context.Context, plan *models.Plan, cache map[string]*models.Template) {
	if plan.TemplateID == "" || plan.Template != nil {
		return
	}

	if template, seen := cache[plan.TemplateID]; seen {
		plan.Template = template

		return
	}

	template, err := p.persistence.TemplateRepository().GetByID(ctx, plan.TemplateID)
	if err != nil && !persistence.IsTemplateNotFound(err) {
		p.logger.WarnContext(ctx, "Failed to load plan template", "plan_id", plan.ID, "template_id", plan.TemplateID, "error", err)
	}

	cache[plan.TemplateID] = template
	plan.Template = template
}

func (p *Plan) acquire(ctx context.Context, key string) (guard.Release, error) {
	release, err := p.guard.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, guard.ErrInFlight) {
			return nil, NewPreconditionError("AcquireMutation", "MUTATION_IN_FLIGHT",
				"a change to this plan is already in progress", ErrMutationInFlight)
		}

		return nil, fmt.Errorf("failed to acquire in-flight guard: %w", err)
	}

	return release, nil
}

// publish reports a committed change. Failures are logged: the change itself is final.
func (p *Plan) publish(ctx context.Context, planID string, event eventbus.Event) {
	if p.publisher == nil {
		return
	}

	err := p.publisher.Publish(ctx, planID, event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish plan event",
			"plan_id", planID,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}
