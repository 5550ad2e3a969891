package models

import (
	"time"

	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/static/gtfs"
)

// Route is a line as exposed by the API
type Route struct {
	RouteID   string `json:"routeId"`
	AgencyID  string `json:"agencyId,omitempty"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Type      int    `json:"type"`
	Color     string `json:"color,omitempty"`
}

// Stop is a stop as exposed by the API
type Stop struct {
	StopID string  `json:"stopId"`
	Code   string  `json:"code,omitempty"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Trip is a trip as exposed by the API
type Trip struct {
	TripID      string `json:"tripId"`
	RouteID     string `json:"routeId"`
	ServiceID   string `json:"serviceId"`
	Headsign    string `json:"headsign,omitempty"`
	DirectionID int    `json:"directionId"`
}

// StopTrip is a trip serving a stop together with its line
type StopTrip struct {
	Route Route `json:"route"`
	Trip  Trip  `json:"trip"`
}

// TripStop is one call of a trip
type TripStop struct {
	Sequence      int    `json:"sequence"`
	StopID        string `json:"stopId"`
	StopName      string `json:"stopName"`
	ArrivalTime   string `json:"arrivalTime"`
	DepartureTime string `json:"departureTime"`
}

// RoutesResponse is the response for GET /api/routes
type RoutesResponse struct {
	Routes []Route `json:"routes"`
	Count  int     `json:"count"`
}

// StopsResponse is the response for GET /api/stops
type StopsResponse struct {
	Stops []Stop `json:"stops"`
	Count int    `json:"count"`
}

// RouteResponse is the response for GET /api/routes/{routeId}
type RouteResponse struct {
	Route *Route `json:"route"`
}

// StopResponse is the response for GET /api/stops/{stopId}
type StopResponse struct {
	Stop *Stop `json:"stop"`
}

// DeparturesResponse is the response for GET /api/stops/{stopId}/departures
type DeparturesResponse struct {
	StopID     string               `json:"stopId"`
	StopName   string               `json:"stopName,omitempty"`
	At         time.Time            `json:"at"`
	Departures []schedule.Departure `json:"departures"`
	Count      int                  `json:"count"`
}

// StopLinesResponse is the response for GET /api/stops/{stopId}/lines
type StopLinesResponse struct {
	StopID string  `json:"stopId"`
	Lines  []Route `json:"lines"`
	Count  int     `json:"count"`
}

// StopTripsResponse is the response for GET /api/stops/{stopId}/trips
type StopTripsResponse struct {
	StopID  string   `json:"stopId"`
	TripIDs []string   `json:"tripIds"`
	Trips   []StopTrip `json:"trips"`
	Count   int        `json:"count"`
}

// TripStopsResponse is the response for GET /api/trips/{tripId}/stops
type TripStopsResponse struct {
	TripID   string     `json:"tripId"`
	Headsign string     `json:"headsign,omitempty"`
	LastStop string     `json:"lastStop,omitempty"`
	Stops    []TripStop `json:"stops"`
	Count    int        `json:"count"`
}

// TripDurationResponse is the response for GET /api/trips/{tripId}/duration
type TripDurationResponse struct {
	TripID          string `json:"tripId"`
	DurationSeconds int64  `json:"durationSeconds"`
	Duration        string `json:"duration"`
}

// NewRoute converts a static route
func NewRoute(r gtfs.Route) Route {
	return Route{
		RouteID:   r.RouteID,
		AgencyID:  r.AgencyID,
		ShortName: r.RouteShortName,
		LongName:  r.RouteLongName,
		Type:      r.RouteType,
		Color:     r.RouteColor,
	}
}

// NewTrip converts a static trip
func NewTrip(t gtfs.Trip) Trip {
	return Trip{
		TripID:      t.TripID,
		RouteID:     t.RouteID,
		ServiceID:   t.ServiceID,
		Headsign:    t.TripHeadsign,
		DirectionID: t.DirectionID,
	}
}

// NewStop converts a static stop
func NewStop(s gtfs.Stop) Stop {
	return Stop{
		StopID: s.StopID,
		Code:   s.StopCode,
		Name:   s.StopName,
		Lat:    s.StopLat,
		Lon:    s.StopLon,
	}
}
