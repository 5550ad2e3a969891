package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/libellus/transit/internal/logging"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs every request and stores logger in the request context
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(logging.WithLogger(r.Context(), logger))
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logging.LogHTTPRequest(logger, r.Method, r.URL.Path, sw.status,
				float64(time.Since(start).Nanoseconds())/1e6,
				slog.String("component", "http_server"))
		})
	}
}

// Endpoint describes one route of the API
type Endpoint struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{"/health", "schedule load status"},
	{"/api/routes", "all lines"},
	{"/api/routes/{routeId}", "one line"},
	{"/api/stops", "all stops"},
	{"/api/stops/{stopId}", "one stop"},
	{"/api/stops/{stopId}/departures?at=<epoch ms>", "next scheduled arrivals at a stop"},
	{"/api/stops/{stopId}/lines", "lines serving a stop"},
	{"/api/stops/{stopId}/trips", "trips serving a stop with their line"},
	{"/api/trips/{tripId}/stops", "ordered calls of a trip"},
	{"/api/trips/{tripId}/duration", "first departure to last arrival"},
	{"/api/delays", "fetch the live feed now and record the delays"},
	{"/api/delays/latest", "newest recorded snapshot"},
	{"/api/delays/report", "delay report from the latest fresh snapshot"},
	{"/api/delays/stats?line=&period=24h", "hourly and per-line delay statistics"},
}

// GetAPIIndex handles GET / with the list of endpoints
func GetAPIIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"endpoints": endpoints})
}

// NewRouter wires the query surface
func NewRouter(health *HealthHandler, sched *ScheduleHandler, delays *DelayHandler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/", GetAPIIndex)
	r.Get("/health", health.GetHealth)

	r.Get("/api/routes", sched.ListRoutes)
	r.Get("/api/routes/{routeId}", sched.GetRoute)
	r.Get("/api/stops", sched.ListStops)
	r.Get("/api/stops/{stopId}", sched.GetStop)
	r.Get("/api/stops/{stopId}/departures", sched.GetDepartures)
	r.Get("/api/stops/{stopId}/lines", sched.GetStopLines)
	r.Get("/api/stops/{stopId}/trips", sched.GetStopTrips)
	r.Get("/api/trips/{tripId}/stops", sched.GetTripStops)
	r.Get("/api/trips/{tripId}/duration", sched.GetTripDuration)

	r.Get("/api/delays", delays.GetDelays)
	r.Get("/api/delays/latest", delays.GetLatestDelays)
	r.Get("/api/delays/report", delays.GetReport)
	r.Get("/api/delays/stats", delays.GetDelayStats)

	return r
}
