package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/metrics"
	"github.com/libellus/transit/internal/realtime"
)

// HourlyDelayStats is the aggregate of one line over one hour
type HourlyDelayStats struct {
	LineName         string    `json:"line_name"`
	HourBucket       time.Time `json:"hour_bucket"`
	ObservationCount int       `json:"observation_count"`
	MeanDelaySeconds float64   `json:"mean_delay_seconds"`
	StdDevSeconds    float64   `json:"stddev_seconds"`
	LateCount        int       `json:"late_count"`
	EarlyCount       int       `json:"early_count"`
	OnTimeCount      int       `json:"on_time_count"`
	MaxDelaySeconds  int64     `json:"max_delay_seconds"`
	m2               float64
}

// LineDelayStats is the aggregate of one line over a whole period
type LineDelayStats struct {
	LineName         string  `json:"line_name"`
	ObservationCount int     `json:"observation_count"`
	MeanDelaySeconds float64 `json:"mean_delay_seconds"`
	StdDevSeconds    float64 `json:"stddev_seconds"`
	LateCount        int     `json:"late_count"`
	EarlyCount       int     `json:"early_count"`
	OnTimeCount      int     `json:"on_time_count"`
	MaxDelaySeconds  int64   `json:"max_delay_seconds"`
}

// SummarizeLines merges hourly aggregates into one per line, ordered by line
func SummarizeLines(hourly []HourlyDelayStats) []LineDelayStats {
	states := make(map[string]*metrics.Welford)
	byLine := make(map[string]*LineDelayStats)
	var order []string

	for _, h := range hourly {
		ls, ok := byLine[h.LineName]
		if !ok {
			ls = &LineDelayStats{LineName: h.LineName, MaxDelaySeconds: h.MaxDelaySeconds}
			byLine[h.LineName] = ls
			states[h.LineName] = &metrics.Welford{}
			order = append(order, h.LineName)
		}
		states[h.LineName].Merge(*metrics.Resume(h.ObservationCount, h.MeanDelaySeconds, h.m2))
		ls.LateCount += h.LateCount
		ls.EarlyCount += h.EarlyCount
		ls.OnTimeCount += h.OnTimeCount
		if h.MaxDelaySeconds > ls.MaxDelaySeconds {
			ls.MaxDelaySeconds = h.MaxDelaySeconds
		}
	}

	sort.Strings(order)
	out := make([]LineDelayStats, 0, len(order))
	for _, line := range order {
		ls := byLine[line]
		w := states[line]
		ls.ObservationCount = w.Count
		ls.MeanDelaySeconds = w.Mean
		ls.StdDevSeconds = w.StdDev()
		out = append(out, *ls)
	}
	return out
}

// HourBucket truncates t to its UTC hour, formatted as stored
func HourBucket(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format(time.RFC3339)
}

// UpdateDelayStats folds records captured at capturedAt into the hourly
// aggregates of their line. A record is on time when its delay falls in
// the minute starting at the scheduled time.
func (db *DB) UpdateDelayStats(ctx context.Context, capturedAt time.Time, records []realtime.DelayRecord) error {
	byLine := make(map[string][]int64)
	for _, rec := range records {
		if rec.LineName == "" {
			continue
		}
		byLine[rec.LineName] = append(byLine[rec.LineName], rec.Delay)
	}
	if len(byLine) == 0 {
		return nil
	}

	bucket := HourBucket(capturedAt)

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, db.logger, "update_delay_stats")

	for line, delays := range byLine {
		var count, late, early, onTime int
		var mean, m2 float64
		var maxDelay int64

		err := tx.QueryRowContext(ctx, `
			SELECT observation_count, delay_mean_seconds, delay_m2,
				late_count, early_count, on_time_count, max_delay_seconds
			FROM stats_delay_hourly
			WHERE line_name = ? AND hour_bucket = ?
		`, line, bucket).Scan(&count, &mean, &m2, &late, &early, &onTime, &maxDelay)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			maxDelay = delays[0]
		case err != nil:
			return fmt.Errorf("failed to read delay stats for %s: %w", line, err)
		}

		w := metrics.Resume(count, mean, m2)
		for _, d := range delays {
			w.Add(float64(d))
			switch {
			case d >= 60:
				late++
			case d < 0:
				early++
			default:
				onTime++
			}
			if d > maxDelay {
				maxDelay = d
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stats_delay_hourly (line_name, hour_bucket, observation_count,
				delay_mean_seconds, delay_m2, late_count, early_count, on_time_count, max_delay_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (line_name, hour_bucket) DO UPDATE SET
				observation_count = excluded.observation_count,
				delay_mean_seconds = excluded.delay_mean_seconds,
				delay_m2 = excluded.delay_m2,
				late_count = excluded.late_count,
				early_count = excluded.early_count,
				on_time_count = excluded.on_time_count,
				max_delay_seconds = excluded.max_delay_seconds
		`, line, bucket, w.Count, w.Mean, w.M2, late, early, onTime, maxDelay)
		if err != nil {
			return fmt.Errorf("failed to upsert delay stats for %s: %w", line, err)
		}
	}

	return tx.Commit()
}

// GetHourlyDelayStats returns aggregates since the given instant, oldest
// hour first. An empty line returns every line.
func (db *DB) GetHourlyDelayStats(ctx context.Context, since time.Time, line string) ([]HourlyDelayStats, error) {
	query := `
		SELECT line_name, hour_bucket, observation_count, delay_mean_seconds, delay_m2,
			late_count, early_count, on_time_count, max_delay_seconds
		FROM stats_delay_hourly
		WHERE hour_bucket >= ?`
	args := []any{HourBucket(since)}
	if line != "" {
		query += " AND line_name = ?"
		args = append(args, line)
	}
	query += " ORDER BY hour_bucket, line_name"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delay stats: %w", err)
	}
	defer rows.Close()

	out := []HourlyDelayStats{}
	for rows.Next() {
		var s HourlyDelayStats
		var bucket string
		if err := rows.Scan(&s.LineName, &bucket, &s.ObservationCount, &s.MeanDelaySeconds, &s.m2,
			&s.LateCount, &s.EarlyCount, &s.OnTimeCount, &s.MaxDelaySeconds); err != nil {
			return nil, fmt.Errorf("failed to scan delay stats: %w", err)
		}
		s.HourBucket, _ = time.Parse(time.RFC3339, bucket)
		s.StdDevSeconds = metrics.Resume(s.ObservationCount, s.MeanDelaySeconds, s.m2).StdDev()
		out = append(out, s)
	}
	return out, rows.Err()
}
