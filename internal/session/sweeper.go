package session

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper deletes sessions idle longer than maxAge every interval until
// ctx is cancelled. Call it in its own goroutine.
func RunSweeper(ctx context.Context, store Store, interval, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.ExpireOlderThan(ctx, maxAge)
			if err != nil {
				logger.WarnContext(ctx, "session sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "expired cart sessions", slog.Int("count", n))
			}
		}
	}
}
