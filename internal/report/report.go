package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/snapshot"
)

var (
	// ErrStale is returned when a snapshot holds no record inside the freshness window
	ErrStale = errors.New("no fresh delay records")
	// ErrNoData is returned when there is neither fresh data nor a previous report
	ErrNoData = errors.New("no data available")
)

// Row is one line of the delay report
type Row struct {
	Line         string `json:"line"`
	Destination  string `json:"destination"`
	StopName     string `json:"stop_name"`
	TripID       string `json:"trip_id"`
	DelayMinutes int64  `json:"delay_minutes"`
	Lateness     string `json:"lateness"`
}

// Report is the table built from one snapshot
type Report struct {
	SnapshotID  string    `json:"snapshot_id"`
	CapturedAt  time.Time `json:"captured_at"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
	Stale       bool      `json:"stale"`
}

// Minutes floors a delay in seconds to whole minutes
func Minutes(delay int64) int64 {
	m := delay / 60
	if delay%60 != 0 && delay < 0 {
		m--
	}
	return m
}

// Bucket labels a delay: "on time" for the minute containing zero,
// "early N minutes" before it, "late N minutes" after it
func Bucket(delay int64) string {
	m := Minutes(delay)
	switch {
	case m == 0:
		return "on time"
	case m < 0:
		return fmt.Sprintf("early %d minutes", -m)
	default:
		return fmt.Sprintf("late %d minutes", m)
	}
}

// Build keeps the records of snap observed less than window before now.
// Rows are ordered by line then destination.
func Build(snap *snapshot.Snapshot, now time.Time, window time.Duration) (*Report, error) {
	if snap == nil {
		return nil, ErrNoData
	}

	cutoff := now.Add(-window).Unix()
	rows := make([]Row, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if rec.LastUpdate <= cutoff {
			continue
		}
		rows = append(rows, newRow(rec))
	}
	if len(rows) == 0 {
		return nil, ErrStale
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Line != rows[j].Line {
			return rows[i].Line < rows[j].Line
		}
		return rows[i].Destination < rows[j].Destination
	})

	return &Report{
		SnapshotID:  snap.ID.String(),
		CapturedAt:  snap.CapturedAt,
		GeneratedAt: now.UTC(),
		Rows:        rows,
	}, nil
}

func newRow(rec realtime.DelayRecord) Row {
	return Row{
		Line:         rec.LineName,
		Destination:  rec.Headsign,
		StopName:     rec.StopName,
		TripID:       rec.TripID,
		DelayMinutes: Minutes(rec.Delay),
		Lateness:     Bucket(rec.Delay),
	}
}
