package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cleanup deletes snapshot rows and hourly stats older than retention
func (db *DB) Cleanup(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := now.Add(-retention).UTC().Format(time.RFC3339)

	queries := []struct {
		name  string
		query string
	}{
		{name: "delay_snapshots", query: "DELETE FROM delay_snapshots WHERE captured_at_utc < ?"},
		{name: "stats_delay_hourly", query: "DELETE FROM stats_delay_hourly WHERE hour_bucket < ?"},
	}

	db.LockWrite()
	defer db.UnlockWrite()

	total := 0
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query, cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		rows, _ := result.RowsAffected()
		total += int(rows)
	}

	if total > 0 {
		db.logger.Info("cleanup complete", slog.Int("deleted", total), slog.Duration("retention", retention))
	}
	return total, nil
}
