package worker

import (
	"context"
	"log/slog"
	"time"
)

// RunPeriodic calls fn every interval until ctx is done. Failures are logged
// and the loop keeps going.
func RunPeriodic(ctx context.Context, interval time.Duration, name string, logger *slog.Logger, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.ErrorContext(ctx, "Periodic task failed", "task", name, "error", err)
			}
		}
	}
}
