package main

import (
	"context"
	"log/slog"

	"github.com/dukex/followup/pkg/dispatch"
	"github.com/dukex/followup/pkg/eventbus"
	"github.com/dukex/followup/pkg/persistence"
	"go.opentelemetry.io/otel/trace"
)

type Dispatcher struct {
	id       string
	logger   *slog.Logger
	eventBus eventbus.EventBus
	poller   *dispatch.Poller
	observer *dispatch.Observer
}

func NewDispatcher(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	tracer trace.Tracer,
	opts ...dispatch.PollerOption,
) *Dispatcher {
	logger = logger.With("dispatcher_id", id)
	plans := persistence.PlanRepository()

	return &Dispatcher{
		id:       id,
		logger:   logger,
		eventBus: eventBus,
		poller:   dispatch.NewPoller(plans, eventBus, logger, append(opts, dispatch.WithPollerTracer(tracer))...),
		observer: dispatch.NewObserver(plans, logger, tracer),
	}
}

// Run observes delivery outcomes and announces due tasks on schedule until ctx ends.
func (d *Dispatcher) Run(ctx context.Context, schedule string) error {
	d.logger.InfoContext(ctx, "Starting dispatcher")

	err := d.observer.Register(d.eventBus)
	if err != nil {
		return err
	}

	err = d.eventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	// Catch up on tasks that became due inside the lookback window before the first tick.
	published, err := d.poller.Tick(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Initial dispatch tick failed", "error", err)
	} else {
		d.logger.InfoContext(ctx, "Initial dispatch tick finished", "published", published)
	}

	err = d.poller.Start(ctx, schedule)
	if err != nil {
		return err
	}

	<-ctx.Done()
	d.poller.Stop()

	d.logger.InfoContext(context.WithoutCancel(ctx), "Dispatcher stopped")

	return nil
}

// Once runs a single tick and reports how many tasks were announced.
func (d *Dispatcher) Once(ctx context.Context) (int, error) {
	return d.poller.Tick(ctx)
}
