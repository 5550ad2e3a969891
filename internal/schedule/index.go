package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/libellus/transit/internal/static/gtfs"
)

// ErrNotFound is returned when a lookup references an unknown id
var ErrNotFound = errors.New("not found")

type exceptionKey struct {
	serviceID string
	date      string
}

// Index is the read-only lookup structure built over the schedule tables.
// It is never mutated after Build and is safe for concurrent use.
type Index struct {
	loc *time.Location

	routes   map[string]gtfs.Route
	trips    map[string]gtfs.Trip
	stops    map[string]gtfs.Stop
	services map[string]gtfs.CalendarService

	exceptions map[exceptionKey]gtfs.ExceptionType
	// dates with at least one "added" exception, for HasServiceOn
	addedDates map[string]struct{}

	stopTimesByTrip map[string][]gtfs.StopTime // sorted by StopSequence
	stopRowByTrip   map[string]map[string]int  // trip_id -> stop_id -> first row index
	tripsByStop     map[string][]string        // stop_id -> sorted trip ids

	routeOrder []string
	stopOrder  []string
}

// Build indexes the schedule tables once. loc is the time zone in which
// service days are anchored; nil means time.Local.
func Build(data *gtfs.Data, loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}
	if data == nil {
		data = &gtfs.Data{}
	}

	idx := &Index{
		loc:             loc,
		routes:          make(map[string]gtfs.Route, len(data.Routes)),
		trips:           make(map[string]gtfs.Trip, len(data.Trips)),
		stops:           make(map[string]gtfs.Stop, len(data.Stops)),
		services:        make(map[string]gtfs.CalendarService, len(data.Calendar)),
		exceptions:      make(map[exceptionKey]gtfs.ExceptionType, len(data.Exceptions)),
		addedDates:      make(map[string]struct{}),
		stopTimesByTrip: make(map[string][]gtfs.StopTime),
		stopRowByTrip:   make(map[string]map[string]int),
		tripsByStop:     make(map[string][]string),
	}

	for _, r := range data.Routes {
		if _, dup := idx.routes[r.RouteID]; !dup {
			idx.routeOrder = append(idx.routeOrder, r.RouteID)
		}
		idx.routes[r.RouteID] = r
	}
	for _, s := range data.Stops {
		if _, dup := idx.stops[s.StopID]; !dup {
			idx.stopOrder = append(idx.stopOrder, s.StopID)
		}
		idx.stops[s.StopID] = s
	}
	for _, t := range data.Trips {
		idx.trips[t.TripID] = t
	}
	for _, c := range data.Calendar {
		idx.services[c.ServiceID] = c
	}
	for _, e := range data.Exceptions {
		idx.exceptions[exceptionKey{e.ServiceID, e.Date}] = e.ExceptionType
		if e.ExceptionType == gtfs.ServiceAdded {
			idx.addedDates[e.Date] = struct{}{}
		}
	}

	for _, st := range data.StopTimes {
		idx.stopTimesByTrip[st.TripID] = append(idx.stopTimesByTrip[st.TripID], st)
	}

	seen := make(map[string]map[string]struct{})
	for tripID, rows := range idx.stopTimesByTrip {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].StopSequence < rows[j].StopSequence
		})

		byStop := make(map[string]int, len(rows))
		for i, st := range rows {
			if _, ok := byStop[st.StopID]; !ok {
				byStop[st.StopID] = i
			}
			if seen[st.StopID] == nil {
				seen[st.StopID] = make(map[string]struct{})
			}
			if _, ok := seen[st.StopID][tripID]; !ok {
				seen[st.StopID][tripID] = struct{}{}
				idx.tripsByStop[st.StopID] = append(idx.tripsByStop[st.StopID], tripID)
			}
		}
		idx.stopRowByTrip[tripID] = byStop
	}
	for _, tripIDs := range idx.tripsByStop {
		sort.Strings(tripIDs)
	}

	return idx
}

// Location returns the time zone service days are anchored in
func (idx *Index) Location() *time.Location {
	return idx.loc
}

// StopTimesForTrip returns the trip's stop times ordered by sequence.
// The returned slice must not be modified. Unknown trips yield nil.
func (idx *Index) StopTimesForTrip(tripID string) []gtfs.StopTime {
	return idx.stopTimesByTrip[tripID]
}

// TripsThroughStop returns the ids of the trips serving a stop, sorted
func (idx *Index) TripsThroughStop(stopID string) []string {
	return idx.tripsByStop[stopID]
}

// StopTimeAt returns the first stop-time row of a trip at a stop
func (idx *Index) StopTimeAt(tripID, stopID string) (gtfs.StopTime, bool) {
	i, ok := idx.stopRowByTrip[tripID][stopID]
	if !ok {
		return gtfs.StopTime{}, false
	}
	return idx.stopTimesByTrip[tripID][i], true
}

func (idx *Index) Route(routeID string) (gtfs.Route, bool) {
	r, ok := idx.routes[routeID]
	return r, ok
}

func (idx *Index) Trip(tripID string) (gtfs.Trip, bool) {
	t, ok := idx.trips[tripID]
	return t, ok
}

func (idx *Index) Stop(stopID string) (gtfs.Stop, bool) {
	s, ok := idx.stops[stopID]
	return s, ok
}

// Routes returns all routes in file order
func (idx *Index) Routes() []gtfs.Route {
	out := make([]gtfs.Route, 0, len(idx.routeOrder))
	for _, id := range idx.routeOrder {
		out = append(out, idx.routes[id])
	}
	return out
}

// Stops returns all stops in file order
func (idx *Index) Stops() []gtfs.Stop {
	out := make([]gtfs.Stop, 0, len(idx.stopOrder))
	for _, id := range idx.stopOrder {
		out = append(out, idx.stops[id])
	}
	return out
}

// RouteShortName returns the short name of a route, or "" if unknown
func (idx *Index) RouteShortName(routeID string) string {
	return idx.routes[routeID].RouteShortName
}

// StopName returns the name of a stop, or "" if unknown
func (idx *Index) StopName(stopID string) string {
	return idx.stops[stopID].StopName
}

// StopsForTrip returns the stop ids a trip visits, in sequence order
func (idx *Index) StopsForTrip(tripID string) []string {
	rows := idx.stopTimesByTrip[tripID]
	out := make([]string, 0, len(rows))
	for _, st := range rows {
		out = append(out, st.StopID)
	}
	return out
}

// LastStop returns the final stop of a trip
func (idx *Index) LastStop(tripID string) (string, bool) {
	rows := idx.stopTimesByTrip[tripID]
	if len(rows) == 0 {
		return "", false
	}
	return rows[len(rows)-1].StopID, true
}

// RoutesThroughStop returns the distinct route ids of the trips serving a stop,
// in order of first appearance among the sorted trip ids.
func (idx *Index) RoutesThroughStop(stopID string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tripID := range idx.tripsByStop[stopID] {
		routeID := idx.trips[tripID].RouteID
		if routeID == "" {
			continue
		}
		if _, ok := seen[routeID]; ok {
			continue
		}
		seen[routeID] = struct{}{}
		out = append(out, routeID)
	}
	return out
}

// TripDuration returns the time between the first departure and the last
// arrival of a trip.
func (idx *Index) TripDuration(tripID string) (time.Duration, error) {
	rows := idx.stopTimesByTrip[tripID]
	if len(rows) == 0 {
		return 0, fmt.Errorf("trip %s: %w", tripID, ErrNotFound)
	}

	first, err := ParseServiceTime(firstNonEmpty(rows[0].DepartureTime, rows[0].ArrivalTime))
	if err != nil {
		return 0, fmt.Errorf("trip %s first stop: %w", tripID, err)
	}
	last := rows[len(rows)-1]
	end, err := ParseServiceTime(firstNonEmpty(last.ArrivalTime, last.DepartureTime))
	if err != nil {
		return 0, fmt.Errorf("trip %s last stop: %w", tripID, err)
	}

	return time.Duration(end-first) * time.Second, nil
}

// Stats summarises the index size
type Stats struct {
	Routes     int `json:"routes"`
	Trips      int `json:"trips"`
	Stops      int `json:"stops"`
	Services   int `json:"services"`
	Exceptions int `json:"exceptions"`
}

func (idx *Index) Stats() Stats {
	return Stats{
		Routes:     len(idx.routes),
		Trips:      len(idx.trips),
		Stops:      len(idx.stops),
		Services:   len(idx.services),
		Exceptions: len(idx.exceptions),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
