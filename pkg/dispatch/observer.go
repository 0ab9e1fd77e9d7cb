package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/followup/pkg/eventbus"
	"github.com/dukex/followup/pkg/events"
	"github.com/dukex/followup/pkg/lifecycle"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/otelhelper"
	"github.com/dukex/followup/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observer applies task.updated and plan.status_changed events to stored plans. Facts
// that contradict the plan state machine are logged and dropped.
type Observer struct {
	plans  persistence.PlanRepository
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewObserver(plans persistence.PlanRepository, logger *slog.Logger, tracer trace.Tracer) *Observer {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Observer{
		plans:  plans,
		logger: logger.With("module", "dispatch_observer"),
		tracer: tracer,
		now:    time.Now,
	}
}

// Register installs the observer handlers on the bus.
func (o *Observer) Register(bus eventbus.EventSubscriber) error {
	err := bus.Handle(events.TaskUpdatedEvent, o.handleTaskUpdated)
	if err != nil {
		return fmt.Errorf("failed to register %s handler: %w", events.TaskUpdatedEvent, err)
	}

	err = bus.Handle(events.PlanStatusChangedEvent, o.handlePlanStatusChanged)
	if err != nil {
		return fmt.Errorf("failed to register %s handler: %w", events.PlanStatusChangedEvent, err)
	}

	return nil
}

func (o *Observer) handleTaskUpdated(ctx context.Context, event any) error {
	update, ok := event.(*events.TaskUpdated)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	return o.TaskUpdated(ctx, update)
}

func (o *Observer) handlePlanStatusChanged(ctx context.Context, event any) error {
	change, ok := event.(*events.PlanStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	return o.StatusChanged(ctx, change)
}

// TaskUpdated records a delivery outcome on its task.
func (o *Observer) TaskUpdated(ctx context.Context, update *events.TaskUpdated) error {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "dispatch.task_updated",
		attribute.String(otelhelper.PlanIDKey, update.PlanID),
		attribute.String(otelhelper.TaskIDKey, update.TaskID),
	)
	defer span.End()

	plan, found, err := o.load(ctx, update.PlanID)
	if err != nil || !found {
		return err
	}

	err = lifecycle.ObserveTask(plan, lifecycle.TaskUpdate{
		TaskID:       update.TaskID,
		Status:       update.Status,
		IsComplete:   update.IsComplete,
		ScheduledFor: update.ScheduledFor,
	}, o.now())
	if err != nil {
		o.logger.WarnContext(ctx, "Dropping task update", "plan_id", plan.ID, "task_id", update.TaskID, "error", err)

		return nil
	}

	return o.save(ctx, span, plan)
}

// StatusChanged applies a reported plan status transition.
func (o *Observer) StatusChanged(ctx context.Context, change *events.PlanStatusChanged) error {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "dispatch.plan_status_changed",
		attribute.String(otelhelper.PlanIDKey, change.PlanID),
	)
	defer span.End()

	plan, found, err := o.load(ctx, change.PlanID)
	if err != nil || !found {
		return err
	}

	from := plan.Status

	changed, err := lifecycle.ObserveStatus(plan, change.Status, change.LastResult, o.now())
	if err != nil {
		o.logger.WarnContext(ctx, "Dropping plan status change",
			"plan_id", plan.ID,
			"from", from,
			"to", change.Status,
			"error", err,
		)

		return nil
	}

	if !changed {
		return nil
	}

	o.logger.InfoContext(ctx, "Plan status changed", "plan_id", plan.ID, "from", from, "to", plan.Status)

	return o.save(ctx, span, plan)
}

// load returns found=false for plans deleted since the event was emitted.
func (o *Observer) load(ctx context.Context, planID string) (*models.Plan, bool, error) {
	plan, err := o.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, persistence.ErrPlanNotFound) {
			o.logger.InfoContext(ctx, "Ignoring event for unknown plan", "plan_id", planID)

			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to load plan %s: %w", planID, err)
	}

	return plan, true, nil
}

// save writes observed facts back without recreating a plan deleted after load.
func (o *Observer) save(ctx context.Context, span trace.Span, plan *models.Plan) error {
	err := o.plans.Update(ctx, plan)
	if err != nil {
		if errors.Is(err, persistence.ErrPlanNotFound) {
			o.logger.InfoContext(ctx, "Ignoring event for deleted plan", "plan_id", plan.ID)

			return nil
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}

	return nil
}
