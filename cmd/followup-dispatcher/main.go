// Package main provides the follow-up dispatcher, which announces due tasks and records
// their delivery outcomes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/followup/pkg/cmd"
	"github.com/dukex/followup/pkg/dispatch"
	"github.com/dukex/followup/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const defaultLookback = 5 * time.Minute

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file://, postgres://, sqlite://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.DurationFlag{
			Name:    "lookback",
			Usage:   "How far back the first window reaches for tasks that became due before startup",
			Value:   defaultLookback,
			Sources: cli.EnvVars("DISPATCH_LOOKBACK"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// withDispatcher builds the dispatcher from flags, runs fn and releases everything afterwards.
func withDispatcher(ctx context.Context, command *cli.Command, fn func(*Dispatcher, *slog.Logger) error) error {
	log.Setup(command.String("log-level"))

	dispatcherID := command.String("dispatcher-id")
	if dispatcherID == "" {
		dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule("followup-dispatcher")

	tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("tracing"), "followup-dispatcher")
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
		}
	}()

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "followup-dispatcher", command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	dispatcher := NewDispatcher(dispatcherID, persistence, eventBus, logger, tracer,
		dispatch.WithLookback(command.Duration("lookback")))

	return fn(dispatcher, logger)
}

func main() {
	command := &cli.Command{
		Name:                  "followup-dispatcher",
		Usage:                 "Announce due follow-up tasks and record their outcomes",
		EnableShellCompletion: true,
		Flags: append(flags(),
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:    "poll-schedule",
				Usage:   "Cron expression or @every descriptor for the due task scan",
				Value:   dispatch.DefaultSchedule,
				Sources: cli.EnvVars("POLL_SCHEDULE"),
			},
		),
		Commands: []*cli.Command{
			{
				Name:  "tick",
				Usage: "Run a single scan and exit",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withDispatcher(ctx, command, func(d *Dispatcher, logger *slog.Logger) error {
						published, err := d.Once(ctx)
						if err != nil {
							return err
						}

						logger.InfoContext(ctx, "Dispatch tick finished", "published", published)

						return nil
					})
				},
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return withDispatcher(ctx, command, func(d *Dispatcher, _ *slog.Logger) error {
				return d.Run(ctx, command.String("poll-schedule"))
			})
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := command.Run(ctx, os.Args)

	stop()

	if err != nil {
		slog.Error("Dispatcher stopped", "error", err)
		os.Exit(1)
	}
}
