package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/snapshot"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(context.Background(), filepath.Join(t.TempDir(), "stats.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnectIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	for i := 0; i < 2; i++ {
		db, err := Connect(context.Background(), path, nil)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}

func TestRecordSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	capturedAt := time.Date(2024, 3, 4, 8, 17, 0, 0, time.UTC)

	snap := &snapshot.Snapshot{
		ID:         uuid.New(),
		CapturedAt: capturedAt,
		Path:       "/data/snapshots/20240304-081700.json",
		Records: []realtime.DelayRecord{
			{TripID: "T1", LineName: "1", Delay: 120},
			{TripID: "T2", LineName: "2", Delay: -60},
		},
	}
	require.NoError(t, db.RecordSnapshot(ctx, snap))
	require.NoError(t, db.RecordSnapshot(ctx, snap), "recording twice is a no-op")
	require.NoError(t, db.RecordSnapshot(ctx, nil))

	list, err := db.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, snap.ID.String(), list[0].SnapshotID)
	assert.Equal(t, 2, list[0].RecordCount)
	assert.InDelta(t, 30.0, list[0].MeanDelaySeconds, 1e-9)
	assert.True(t, capturedAt.Equal(list[0].CapturedAt))
}

func TestUpdateDelayStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	hour := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpdateDelayStats(ctx, hour.Add(5*time.Minute), []realtime.DelayRecord{
		{LineName: "1", Delay: 120},
		{LineName: "1", Delay: -30},
		{LineName: "2", Delay: 30},
		{LineName: "", Delay: 900},
	}))
	require.NoError(t, db.UpdateDelayStats(ctx, hour.Add(10*time.Minute), []realtime.DelayRecord{
		{LineName: "1", Delay: 300},
	}))
	require.NoError(t, db.UpdateDelayStats(ctx, hour.Add(time.Hour), []realtime.DelayRecord{
		{LineName: "1", Delay: 0},
	}))
	require.NoError(t, db.UpdateDelayStats(ctx, hour, nil))

	t.Run("all lines", func(t *testing.T) {
		stats, err := db.GetHourlyDelayStats(ctx, hour, "")
		require.NoError(t, err)
		require.Len(t, stats, 3)

		line1 := stats[0]
		assert.Equal(t, "1", line1.LineName)
		assert.True(t, hour.Equal(line1.HourBucket))
		assert.Equal(t, 3, line1.ObservationCount)
		assert.InDelta(t, 130.0, line1.MeanDelaySeconds, 1e-9)
		assert.Equal(t, 2, line1.LateCount)
		assert.Equal(t, 1, line1.EarlyCount)
		assert.Equal(t, 0, line1.OnTimeCount)
		assert.Equal(t, int64(300), line1.MaxDelaySeconds)
		assert.Greater(t, line1.StdDevSeconds, 0.0)

		assert.Equal(t, "2", stats[1].LineName)
		assert.Equal(t, 1, stats[1].OnTimeCount)
	})

	t.Run("filtered by line and time", func(t *testing.T) {
		stats, err := db.GetHourlyDelayStats(ctx, hour.Add(time.Hour), "1")
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, 1, stats[0].ObservationCount)
	})
}

func TestUpdateDelayStatsAllEarly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	hour := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpdateDelayStats(ctx, hour, []realtime.DelayRecord{
		{LineName: "1", Delay: -120},
		{LineName: "1", Delay: -30},
	}))

	stats, err := db.GetHourlyDelayStats(ctx, hour, "1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(-30), stats[0].MaxDelaySeconds)
	assert.Equal(t, 2, stats[0].EarlyCount)
}

func TestSummarizeLines(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	hour := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpdateDelayStats(ctx, hour, []realtime.DelayRecord{
		{LineName: "1", Delay: 0},
		{LineName: "1", Delay: 60},
		{LineName: "2", Delay: -30},
	}))
	require.NoError(t, db.UpdateDelayStats(ctx, hour.Add(time.Hour), []realtime.DelayRecord{
		{LineName: "1", Delay: 120},
		{LineName: "1", Delay: 180},
	}))

	hourly, err := db.GetHourlyDelayStats(ctx, hour, "")
	require.NoError(t, err)

	lines := SummarizeLines(hourly)
	require.Len(t, lines, 2)

	line1 := lines[0]
	assert.Equal(t, "1", line1.LineName)
	assert.Equal(t, 4, line1.ObservationCount)
	assert.InDelta(t, 90.0, line1.MeanDelaySeconds, 1e-9)
	// population stddev of 0, 60, 120, 180
	assert.InDelta(t, 67.0820393, line1.StdDevSeconds, 1e-6)
	assert.Equal(t, 3, line1.LateCount)
	assert.Equal(t, 1, line1.OnTimeCount)
	assert.Equal(t, int64(180), line1.MaxDelaySeconds)

	assert.Equal(t, "2", lines[1].LineName)
	assert.Equal(t, int64(-30), lines[1].MaxDelaySeconds)

	assert.Empty(t, SummarizeLines(nil))
}

func TestCleanup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	old := &snapshot.Snapshot{ID: uuid.New(), CapturedAt: now.Add(-72 * time.Hour), Records: []realtime.DelayRecord{{LineName: "1"}}}
	recent := &snapshot.Snapshot{ID: uuid.New(), CapturedAt: now.Add(-time.Hour), Records: []realtime.DelayRecord{{LineName: "1"}}}
	require.NoError(t, db.RecordSnapshot(ctx, old))
	require.NoError(t, db.RecordSnapshot(ctx, recent))
	require.NoError(t, db.UpdateDelayStats(ctx, old.CapturedAt, old.Records))
	require.NoError(t, db.UpdateDelayStats(ctx, recent.CapturedAt, recent.Records))

	deleted, err := db.Cleanup(ctx, now, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	list, err := db.ListSnapshots(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, recent.ID.String(), list[0].SnapshotID)
}
