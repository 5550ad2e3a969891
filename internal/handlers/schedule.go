package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/libellus/transit/internal/models"
	"github.com/libellus/transit/internal/schedule"
)

// ScheduleHandler answers static schedule queries against the current index
type ScheduleHandler struct {
	provider *schedule.Provider
	now      func() time.Time
}

// NewScheduleHandler creates a handler reading from provider
func NewScheduleHandler(provider *schedule.Provider) *ScheduleHandler {
	return &ScheduleHandler{provider: provider, now: time.Now}
}

// index returns the current index or writes a 503
func (h *ScheduleHandler) index(w http.ResponseWriter) *schedule.Index {
	idx := h.provider.Index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "Schedule not loaded", nil)
	}
	return idx
}

// ListRoutes handles GET /api/routes
func (h *ScheduleHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	routes := []models.Route{}
	for _, route := range idx.Routes() {
		routes = append(routes, models.NewRoute(route))
	}
	writeJSON(w, http.StatusOK, models.RoutesResponse{Routes: routes, Count: len(routes)})
}

// ListStops handles GET /api/stops
func (h *ScheduleHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	stops := []models.Stop{}
	for _, stop := range idx.Stops() {
		stops = append(stops, models.NewStop(stop))
	}
	writeJSON(w, http.StatusOK, models.StopsResponse{Stops: stops, Count: len(stops)})
}

// GetRoute handles GET /api/routes/{routeId}
func (h *ScheduleHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	resp := models.RouteResponse{}
	if route, ok := idx.Route(chi.URLParam(r, "routeId")); ok {
		m := models.NewRoute(route)
		resp.Route = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetStop handles GET /api/stops/{stopId}
func (h *ScheduleHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	resp := models.StopResponse{}
	if stop, ok := idx.Stop(chi.URLParam(r, "stopId")); ok {
		m := models.NewStop(stop)
		resp.Stop = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDepartures handles GET /api/stops/{stopId}/departures
// Query params: at (optional, epoch milliseconds, default now)
func (h *ScheduleHandler) GetDepartures(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	at := h.now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be epoch milliseconds", nil)
			return
		}
		at = time.UnixMilli(ms)
	}

	stopID := chi.URLParam(r, "stopId")
	departures := idx.NextDepartures(stopID, at)
	writeJSON(w, http.StatusOK, models.DeparturesResponse{
		StopID:     stopID,
		StopName:   idx.StopName(stopID),
		At:         at.In(idx.Location()),
		Departures: departures,
		Count:      len(departures),
	})
}

// GetStopLines handles GET /api/stops/{stopId}/lines
func (h *ScheduleHandler) GetStopLines(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	stopID := chi.URLParam(r, "stopId")
	lines := []models.Route{}
	for _, routeID := range idx.RoutesThroughStop(stopID) {
		route, ok := idx.Route(routeID)
		if !ok {
			route.RouteID = routeID
		}
		lines = append(lines, models.NewRoute(route))
	}
	writeJSON(w, http.StatusOK, models.StopLinesResponse{StopID: stopID, Lines: lines, Count: len(lines)})
}

// GetStopTrips handles GET /api/stops/{stopId}/trips
func (h *ScheduleHandler) GetStopTrips(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	stopID := chi.URLParam(r, "stopId")
	tripIDs := append([]string{}, idx.TripsThroughStop(stopID)...)
	trips := make([]models.StopTrip, 0, len(tripIDs))
	for _, tripID := range tripIDs {
		trip, _ := idx.Trip(tripID)
		route, ok := idx.Route(trip.RouteID)
		if !ok {
			route.RouteID = trip.RouteID
		}
		trips = append(trips, models.StopTrip{Route: models.NewRoute(route), Trip: models.NewTrip(trip)})
	}
	writeJSON(w, http.StatusOK, models.StopTripsResponse{
		StopID:  stopID,
		TripIDs: tripIDs,
		Trips:   trips,
		Count:   len(tripIDs),
	})
}

// GetTripStops handles GET /api/trips/{tripId}/stops
func (h *ScheduleHandler) GetTripStops(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	tripID := chi.URLParam(r, "tripId")
	resp := models.TripStopsResponse{TripID: tripID, Stops: []models.TripStop{}}
	if trip, ok := idx.Trip(tripID); ok {
		resp.Headsign = trip.TripHeadsign
	}
	if last, ok := idx.LastStop(tripID); ok {
		resp.LastStop = idx.StopName(last)
	}
	for _, st := range idx.StopTimesForTrip(tripID) {
		resp.Stops = append(resp.Stops, models.TripStop{
			Sequence:      st.StopSequence,
			StopID:        st.StopID,
			StopName:      idx.StopName(st.StopID),
			ArrivalTime:   st.ArrivalTime,
			DepartureTime: st.DepartureTime,
		})
	}
	resp.Count = len(resp.Stops)
	writeJSON(w, http.StatusOK, resp)
}

// GetTripDuration handles GET /api/trips/{tripId}/duration
// Unknown trips report a zero duration.
func (h *ScheduleHandler) GetTripDuration(w http.ResponseWriter, r *http.Request) {
	idx := h.index(w)
	if idx == nil {
		return
	}

	tripID := chi.URLParam(r, "tripId")
	d, err := idx.TripDuration(tripID)
	if err != nil {
		d = 0
	}
	writeJSON(w, http.StatusOK, models.TripDurationResponse{
		TripID:          tripID,
		DurationSeconds: int64(d / time.Second),
		Duration:        d.String(),
	})
}
