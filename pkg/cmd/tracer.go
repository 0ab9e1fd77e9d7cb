package cmd

import (
	"context"
	"fmt"

	"github.com/dukex/followup/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer sets up OTLP tracing when enabled and returns a no-op tracer otherwise.
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return tracer, shutdown, nil
}
