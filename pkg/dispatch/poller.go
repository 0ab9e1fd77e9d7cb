// Package dispatch announces due tasks and records delivery outcomes reported back by the
// delivery subsystem.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/followup/pkg/eventbus"
	"github.com/dukex/followup/pkg/events"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/otelhelper"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSchedule polls once a minute.
const DefaultSchedule = "@every 1m"

// Poller publishes task.due for every pending task whose scheduledFor falls in the
// window (previous tick, this tick].
type Poller struct {
	plans     persistence.PlanRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	lookback  time.Duration

	mu       sync.Mutex
	lastTick time.Time
	cron     *cron.Cron
}

type PollerOption func(*Poller)

func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *Poller) {
		p.now = now
	}
}

func WithPollerTracer(tracer trace.Tracer) PollerOption {
	return func(p *Poller) {
		p.tracer = tracer
	}
}

// WithLookback moves the first window start back so tasks that became due shortly before
// the process started are still announced.
func WithLookback(lookback time.Duration) PollerOption {
	return func(p *Poller) {
		p.lookback = lookback
	}
}

func NewPoller(plans persistence.PlanRepository, publisher eventbus.EventPublisher, logger *slog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		plans:     plans,
		publisher: publisher,
		logger:    logger.With("module", "dispatch_poller"),
		tracer:    otelhelper.NoopTracer(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.lastTick = p.now().UTC().Add(-p.lookback)

	return p
}

// Tick scans plans once and returns how many task.due events were published.
func (p *Poller) Tick(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	from := p.lastTick

	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "dispatch.tick")
	defer span.End()

	plans, err := p.plans.All(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return 0, fmt.Errorf("failed to load plans: %w", err)
	}

	published := 0

	for _, plan := range plans {
		for _, task := range DueTasks(plan, from, now) {
			event := events.TaskDue{
				BaseEvent:    events.NewBaseEvent(events.TaskDueEvent, plan.ID),
				TaskID:       task.ID,
				TaskType:     task.Type,
				PersonID:     task.PersonID.LeadID(),
				Day:          task.Day,
				ScheduledFor: task.ScheduledFor.UTC(),
			}

			err := p.publisher.Publish(ctx, plan.ID, event)
			if err != nil {
				otelhelper.SetError(span, err, attribute.String(otelhelper.PlanIDKey, plan.ID))

				// The window is not advanced, so the next tick retries everything after from.
				return published, fmt.Errorf("failed to publish task %s of plan %s: %w", task.ID, plan.ID, err)
			}

			published++
		}
	}

	p.lastTick = now

	span.SetAttributes(attribute.Int(otelhelper.TaskCountKey, published))

	if published > 0 {
		p.logger.InfoContext(ctx, "Published due tasks", "count", published, "from", from, "to", now)
	}

	return published, nil
}

// DueTasks lists the tasks of an active plan that are still pending and whose scheduledFor
// lies in (from, to].
func DueTasks(plan *models.Plan, from, to time.Time) []*models.Task {
	due := make([]*models.Task, 0)

	if plan.Status != models.PlanStatusScheduled && plan.Status != models.PlanStatusInProgress {
		return due
	}

	for _, task := range plan.Todo {
		if task == nil || task.IsComplete || task.ScheduledFor == nil {
			continue
		}

		if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusScheduled {
			continue
		}

		if task.ScheduledFor.After(from) && !task.ScheduledFor.After(to) {
			due = append(due, task)
		}
	}

	return due
}

// Start runs Tick on the cron schedule until Stop is called or ctx ends.
func (p *Poller) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid poll schedule '%s': %w", schedule, err)
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.AddFunc(schedule, func() {
		if _, err := p.Tick(ctx); err != nil {
			p.logger.ErrorContext(ctx, "Dispatch tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poller: %w", err)
	}

	p.cron = c
	c.Start()

	p.logger.InfoContext(ctx, "Dispatch poller started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (p *Poller) Stop() {
	if p.cron == nil {
		return
	}

	<-p.cron.Stop().Done()
}
