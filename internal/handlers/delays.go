package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/libellus/transit/internal/db"
	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/models"
	"github.com/libellus/transit/internal/poller"
	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/report"
	"github.com/libellus/transit/internal/snapshot"
)

// DelayPoller runs an on-demand poll
type DelayPoller interface {
	Poll(ctx context.Context) (*poller.Result, error)
}

// SnapshotReader reads the newest recorded snapshot
type SnapshotReader interface {
	LatestFresh(now time.Time, maxAge time.Duration) (*snapshot.Snapshot, error)
}

// ReportGenerator builds the delay report
type ReportGenerator interface {
	Generate() (*report.Report, error)
}

// DelayStatsRepository defines the interface for delay statistics
type DelayStatsRepository interface {
	GetHourlyDelayStats(ctx context.Context, since time.Time, line string) ([]db.HourlyDelayStats, error)
	ListSnapshots(ctx context.Context, limit int) ([]db.SnapshotInfo, error)
}

// DelayHandler handles HTTP requests for real-time delay data
type DelayHandler struct {
	poller  DelayPoller
	store   SnapshotReader
	reports ReportGenerator
	stats   DelayStatsRepository // optional
	window  time.Duration
	now     func() time.Time
}

// NewDelayHandler creates a delay handler. window is the freshness window
// of stored snapshots.
func NewDelayHandler(p DelayPoller, store SnapshotReader, reports ReportGenerator, stats DelayStatsRepository, window time.Duration) *DelayHandler {
	return &DelayHandler{
		poller:  p,
		store:   store,
		reports: reports,
		stats:   stats,
		window:  window,
		now:     time.Now,
	}
}

// GetDelays handles GET /api/delays
// Fetches the feed now, reconciles it and records the result
func (h *DelayHandler) GetDelays(w http.ResponseWriter, r *http.Request) {
	res, err := h.poller.Poll(r.Context())
	if err != nil {
		var transportErr *realtime.TransportError
		if errors.As(err, &transportErr) || errors.Is(err, poller.ErrNoSchedule) {
			logging.LogError(logging.FromContext(r.Context()), "on-demand poll failed", err)
			writeError(w, http.StatusServiceUnavailable, "no data available", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute delays", err)
		return
	}

	resp := models.DelaysResponse{
		Delays:      res.Records,
		Count:       len(res.Records),
		Dropped:     len(res.Diagnostics),
		CapturedAt:  res.CapturedAt.UTC(),
		LastChecked: h.now().UTC(),
	}
	if res.Snapshot != nil {
		resp.SnapshotID = res.Snapshot.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLatestDelays handles GET /api/delays/latest
// Serves the newest stored snapshot; a stale one is flagged
func (h *DelayHandler) GetLatestDelays(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LatestFresh(h.now(), h.window)
	stale := errors.Is(err, snapshot.ErrStale)
	if err != nil && !stale {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			writeError(w, http.StatusServiceUnavailable, "no data available", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read snapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, models.DelaysResponse{
		Delays:      snap.Records,
		Count:       len(snap.Records),
		SnapshotID:  snap.ID.String(),
		CapturedAt:  snap.CapturedAt,
		Stale:       stale,
		LastChecked: h.now().UTC(),
	})
}

// GetReport handles GET /api/delays/report
func (h *DelayHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Generate()
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			writeError(w, http.StatusServiceUnavailable, "no data available", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetDelayStats handles GET /api/delays/stats
// Query params: line (optional), period (optional, default "24h")
func (h *DelayHandler) GetDelayStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "statistics disabled", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line := r.URL.Query().Get("line")
	hours := 24
	if period := r.URL.Query().Get("period"); len(period) > 1 && period[len(period)-1] == 'h' {
		if n, err := strconv.Atoi(period[:len(period)-1]); err == nil && n > 0 && n <= 720 {
			hours = n
		}
	}

	now := h.now()
	hourly, err := h.stats.GetHourlyDelayStats(ctx, now.Add(-time.Duration(hours)*time.Hour), line)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get hourly delay stats", err)
		return
	}
	snapshots, err := h.stats.ListSnapshots(ctx, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}

	resp := models.DelayStatsResponse{
		HourlyStats: hourly,
		Lines:       db.SummarizeLines(hourly),
		Snapshots:   snapshots,
		LastChecked: now.UTC(),
	}
	if snap, err := h.store.LatestFresh(now, h.window); err == nil {
		resp.Summary = models.Summarize(snap.Records)
	}
	writeJSON(w, http.StatusOK, resp)
}
