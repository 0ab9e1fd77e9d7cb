package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/followup/pkg/guard"
)

// DefaultGuardTTL bounds how long a crashed API replica can hold an in-flight flag.
const DefaultGuardTTL = 30 * time.Second

// NewGuard returns a Redis-backed guard when redisURL is set and a process-local one
// otherwise. The returned close function releases the Redis connection.
func NewGuard(ctx context.Context, redisURL string, logger *slog.Logger) (guard.Guard, func() error, error) {
	if redisURL == "" {
		return guard.NewMemory(), func() error { return nil }, nil
	}

	client, err := guard.Connect(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}

	logger.InfoContext(ctx, "Using Redis in-flight guard", "ttl", DefaultGuardTTL)

	return guard.NewRedis(client, DefaultGuardTTL, logger), client.Close, nil
}
