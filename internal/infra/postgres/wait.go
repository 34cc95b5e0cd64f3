package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// WaitForDB pings the pool until it answers or the retries run out. The
// database container usually starts alongside the service.
func WaitForDB(ctx context.Context, pool *pgxpool.Pool, retries int, interval time.Duration, logger *zap.Logger) error {
	if retries < 1 {
		retries = 1
	}

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			logger.Info("database connection established", zap.Int("attempt", attempt))
			return nil
		}
		logger.Info("waiting for database",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retries),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("database unavailable after %d attempts: %w", retries, err)
}
