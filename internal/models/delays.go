package models

import (
	"time"

	"github.com/libellus/transit/internal/db"
	"github.com/libellus/transit/internal/realtime"
)

// DelaysResponse is the response for GET /api/delays and /api/delays/latest
type DelaysResponse struct {
	Delays      []realtime.DelayRecord `json:"delays"`
	Count       int                    `json:"count"`
	Dropped     int                    `json:"dropped"`
	SnapshotID  string                 `json:"snapshotId,omitempty"`
	CapturedAt  time.Time              `json:"capturedAt"`
	Stale       bool                   `json:"stale"`
	LastChecked time.Time              `json:"lastChecked"`
}

// DelaySummary condenses a batch of delay records
type DelaySummary struct {
	TotalVehicles   int     `json:"totalVehicles"`
	LateVehicles    int     `json:"lateVehicles"`
	EarlyVehicles   int     `json:"earlyVehicles"`
	OnTimePercent   float64 `json:"onTimePercent"`
	AvgDelaySeconds float64 `json:"avgDelaySeconds"`
	MaxDelaySeconds int64   `json:"maxDelaySeconds"`
	WorstLine       string  `json:"worstLine,omitempty"`
}

// DelayStatsResponse is the response for GET /api/delays/stats
type DelayStatsResponse struct {
	Summary     *DelaySummary         `json:"summary"`
	HourlyStats []db.HourlyDelayStats `json:"hourlyStats"`
	Lines       []db.LineDelayStats   `json:"lines"`
	Snapshots   []db.SnapshotInfo     `json:"snapshots"`
	LastChecked time.Time             `json:"lastChecked"`
}

// Summarize builds a DelaySummary. A vehicle is late from one minute behind
// schedule and early as soon as it is ahead.
func Summarize(records []realtime.DelayRecord) *DelaySummary {
	s := &DelaySummary{TotalVehicles: len(records)}
	if len(records) == 0 {
		return s
	}

	var total int64
	onTime := 0
	for _, rec := range records {
		total += rec.Delay
		switch {
		case rec.Delay >= 60:
			s.LateVehicles++
		case rec.Delay < 0:
			s.EarlyVehicles++
		default:
			onTime++
		}
		if rec.Delay > s.MaxDelaySeconds {
			s.MaxDelaySeconds = rec.Delay
			s.WorstLine = rec.LineName
		}
	}
	s.AvgDelaySeconds = float64(total) / float64(len(records))
	s.OnTimePercent = float64(onTime) * 100 / float64(len(records))
	return s
}
