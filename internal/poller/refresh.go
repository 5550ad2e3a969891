package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/schedule"
)

// IndexLoader builds a fresh schedule index
type IndexLoader interface {
	Load(ctx context.Context) (*schedule.Index, error)
}

// RefreshLoop reloads the schedule every interval and swaps it into provider.
// A failed reload keeps the current index.
func RefreshLoop(ctx context.Context, loader IndexLoader, provider *schedule.Provider, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			Reload(ctx, loader, provider, logger)
		case <-ctx.Done():
			logger.Info("static refresh loop stopped")
			return
		}
	}
}

// Reload loads the schedule once and swaps it in on success
func Reload(ctx context.Context, loader IndexLoader, provider *schedule.Provider, logger *slog.Logger) bool {
	idx, err := loader.Load(ctx)
	if err != nil {
		logging.LogError(logger, "static refresh failed, keeping current schedule", err)
		return false
	}
	provider.Swap(idx)
	logging.LogOperation(logger, "schedule_swapped", slog.Int("trips", idx.Stats().Trips))
	return true
}
