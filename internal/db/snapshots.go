package db

import (
	"context"
	"fmt"
	"time"

	"github.com/libellus/transit/internal/metrics"
	"github.com/libellus/transit/internal/snapshot"
)

// SnapshotInfo is the index row of one recorded snapshot
type SnapshotInfo struct {
	SnapshotID       string    `json:"snapshot_id"`
	CapturedAt       time.Time `json:"captured_at"`
	Path             string    `json:"path"`
	RecordCount      int       `json:"record_count"`
	MeanDelaySeconds float64   `json:"mean_delay_seconds"`
}

// RecordSnapshot indexes a snapshot written by the snapshot store
func (db *DB) RecordSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return nil
	}

	var w metrics.Welford
	for _, rec := range snap.Records {
		w.Add(float64(rec.Delay))
	}

	db.LockWrite()
	defer db.UnlockWrite()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO delay_snapshots (snapshot_id, captured_at_utc, path, record_count, mean_delay_seconds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (snapshot_id) DO NOTHING
	`, snap.ID.String(), snap.CapturedAt.UTC().Format(time.RFC3339), snap.Path, len(snap.Records), w.Mean)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the most recent snapshot rows, newest first
func (db *DB) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT snapshot_id, captured_at_utc, path, record_count, mean_delay_seconds
		FROM delay_snapshots
		ORDER BY captured_at_utc DESC, snapshot_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	out := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		var captured string
		if err := rows.Scan(&info.SnapshotID, &captured, &info.Path, &info.RecordCount, &info.MeanDelaySeconds); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.CapturedAt, _ = time.Parse(time.RFC3339, captured)
		out = append(out, info)
	}
	return out, rows.Err()
}
