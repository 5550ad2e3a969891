package schedule

import (
	"sort"
	"time"
)

// Departure is one upcoming scheduled arrival at a stop
type Departure struct {
	TripID       string `json:"trip_id"`
	RouteID      string `json:"route_id"`
	ServiceID    string `json:"service_id"`
	ArrivalTime  string `json:"arrival_time"`
	TripHeadsign string `json:"trip_headsign,omitempty"`

	// Seconds since service-day start, for ordering
	ArrivalSeconds int `json:"-"`
	// Absolute instant of the arrival on the reference service day
	ScheduledAt time.Time `json:"-"`
}

// NextDepartures lists the scheduled arrivals at a stop that are not before
// ref, for trips whose service runs on ref's date. Results are ordered by
// arrival time then trip id. An unknown stop yields an empty result.
func (idx *Index) NextDepartures(stopID string, ref time.Time) []Departure {
	ref = ref.In(idx.loc)
	dateKey := DateKey(ref)
	dayStart := ServiceDayStart(ref.Year(), ref.Month(), ref.Day(), idx.loc)

	departures := []Departure{}
	for _, tripID := range idx.tripsByStop[stopID] {
		trip, ok := idx.trips[tripID]
		if !ok {
			continue
		}
		row, ok := idx.StopTimeAt(tripID, stopID)
		if !ok {
			continue
		}
		if !idx.ServiceRunsOn(trip.ServiceID, dateKey) {
			continue
		}

		arrival := firstNonEmpty(row.ArrivalTime, row.DepartureTime)
		seconds, err := ParseServiceTime(arrival)
		if err != nil {
			continue
		}

		at := dayStart.Add(time.Duration(seconds) * time.Second)
		if at.Before(ref) {
			continue
		}

		departures = append(departures, Departure{
			TripID:         trip.TripID,
			RouteID:        trip.RouteID,
			ServiceID:      trip.ServiceID,
			ArrivalTime:    arrival,
			TripHeadsign:   trip.TripHeadsign,
			ArrivalSeconds: seconds,
			ScheduledAt:    at,
		})
	}

	sort.SliceStable(departures, func(i, j int) bool {
		if departures[i].ArrivalSeconds != departures[j].ArrivalSeconds {
			return departures[i].ArrivalSeconds < departures[j].ArrivalSeconds
		}
		return departures[i].TripID < departures[j].TripID
	})

	return departures
}
