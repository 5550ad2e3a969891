package realtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/libellus/transit/internal/schedule"
)

// PairingPolicy decides how vehicle observations are matched to trip updates
type PairingPolicy string

const (
	// PairByTrip joins a trip update to the vehicle reporting the same trip id
	PairByTrip PairingPolicy = "trip"
	// PairPositional pairs the i-th vehicle with the i-th trip update in feed order
	PairPositional PairingPolicy = "positional"
)

// AnchorPolicy decides which calendar date a scheduled time is anchored to
type AnchorPolicy string

const (
	// AnchorServiceDay uses the trip's start date, or the active service day
	// (today or yesterday) closest to the observation
	AnchorServiceDay AnchorPolicy = "service-day"
	// AnchorWallClock always uses today's date
	AnchorWallClock AnchorPolicy = "wall-clock"
)

// DiagnosticKind classifies a dropped entity
type DiagnosticKind string

const (
	MalformedEntity DiagnosticKind = "malformed_entity"
	NotScheduled    DiagnosticKind = "not_scheduled"
)

// Diagnostic explains why an entity produced no record
type Diagnostic struct {
	EntityID string         `json:"entityId"`
	TripID   string         `json:"tripId,omitempty"`
	StopID   string         `json:"stopId,omitempty"`
	Kind     DiagnosticKind `json:"kind"`
	Reason   string         `json:"reason"`
}

// Result is the outcome of one reconciliation
type Result struct {
	Records     []DelayRecord
	Diagnostics []Diagnostic
}

// Reconciler matches real-time observations to the static schedule
type Reconciler struct {
	pairing PairingPolicy
	anchor  AnchorPolicy
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Reconciler
type Option func(*Reconciler)

func WithPairing(p PairingPolicy) Option {
	return func(r *Reconciler) { r.pairing = p }
}

func WithAnchor(a AnchorPolicy) Option {
	return func(r *Reconciler) { r.anchor = a }
}

// WithClock overrides the wall clock used to pick the anchor date
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler returns a Reconciler joining by trip id and anchoring on the service day
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{
		pairing: PairByTrip,
		anchor:  AnchorServiceDay,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pair struct {
	entityID   string
	vehicle    *VehicleObservation
	tripUpdate *TripUpdate
}

// Reconcile computes one DelayRecord per matched vehicle/trip-update pair.
// Entities that cannot be matched are dropped with a diagnostic; a single bad
// entity never fails the batch.
func (r *Reconciler) Reconcile(feed *Feed, idx *schedule.Index) Result {
	res := Result{Records: []DelayRecord{}}
	if feed == nil || idx == nil {
		return res
	}

	now := r.now()
	var pairs []pair
	if r.pairing == PairPositional {
		pairs = pairPositional(feed)
	} else {
		pairs, res.Diagnostics = pairByTrip(feed)
	}

	for _, p := range pairs {
		record, diag := r.reconcileOne(p, idx, now)
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
			r.logger.Debug("entity dropped",
				slog.String("entity_id", diag.EntityID),
				slog.String("trip_id", diag.TripID),
				slog.String("stop_id", diag.StopID),
				slog.String("kind", string(diag.Kind)),
				slog.String("reason", diag.Reason))
			continue
		}
		res.Records = append(res.Records, record)
	}

	return res
}

func pairPositional(feed *Feed) []pair {
	var vehicles, updates []Entity
	for _, e := range feed.Entities {
		if e.Vehicle != nil {
			vehicles = append(vehicles, e)
		}
	}
	for _, e := range feed.Entities {
		if e.TripUpdate != nil {
			updates = append(updates, e)
		}
	}

	pairs := make([]pair, 0, len(vehicles))
	for i := range vehicles {
		if i >= len(updates) {
			break
		}
		pairs = append(pairs, pair{
			entityID:   vehicles[i].ID,
			vehicle:    vehicles[i].Vehicle,
			tripUpdate: updates[i].TripUpdate,
		})
	}
	return pairs
}

func pairByTrip(feed *Feed) ([]pair, []Diagnostic) {
	vehiclesByTrip := make(map[string]*VehicleObservation)
	for _, e := range feed.Entities {
		if e.Vehicle == nil || e.Vehicle.TripID == "" {
			continue
		}
		if _, ok := vehiclesByTrip[e.Vehicle.TripID]; !ok {
			vehiclesByTrip[e.Vehicle.TripID] = e.Vehicle
		}
	}

	var pairs []pair
	var diags []Diagnostic
	for _, e := range feed.Entities {
		if e.TripUpdate == nil {
			continue
		}
		if e.TripUpdate.TripID == "" {
			diags = append(diags, Diagnostic{EntityID: e.ID, Kind: MalformedEntity, Reason: "trip update without trip id"})
			continue
		}

		vehicle := vehiclesByTrip[e.TripUpdate.TripID]
		if vehicle == nil && e.Vehicle != nil && e.Vehicle.TripID == "" {
			vehicle = e.Vehicle
		}
		if vehicle == nil {
			continue
		}
		pairs = append(pairs, pair{entityID: e.ID, vehicle: vehicle, tripUpdate: e.TripUpdate})
	}
	return pairs, diags
}

func (r *Reconciler) reconcileOne(p pair, idx *schedule.Index, now time.Time) (DelayRecord, *Diagnostic) {
	tripID := p.tripUpdate.TripID
	stopID := p.vehicle.StopID
	drop := func(kind DiagnosticKind, reason string) (DelayRecord, *Diagnostic) {
		return DelayRecord{}, &Diagnostic{EntityID: p.entityID, TripID: tripID, StopID: stopID, Kind: kind, Reason: reason}
	}

	if tripID == "" {
		return drop(MalformedEntity, "trip update without trip id")
	}
	if stopID == "" {
		return drop(MalformedEntity, "vehicle without stop id")
	}
	if p.vehicle.Timestamp <= 0 {
		return drop(MalformedEntity, "vehicle without timestamp")
	}

	row, ok := idx.StopTimeAt(tripID, stopID)
	if !ok {
		return drop(NotScheduled, "trip/stop not in static schedule")
	}

	departure := row.DepartureTime
	if departure == "" {
		departure = row.ArrivalTime
	}
	seconds, err := schedule.ParseServiceTime(departure)
	if err != nil {
		return drop(MalformedEntity, err.Error())
	}

	trip, _ := idx.Trip(tripID)
	observed := time.Unix(p.vehicle.Timestamp, 0)
	scheduled, err := r.scheduledAt(idx, p.tripUpdate, trip.ServiceID, seconds, observed, now)
	if err != nil {
		return drop(MalformedEntity, err.Error())
	}

	routeID := p.tripUpdate.RouteID
	if routeID == "" {
		routeID = trip.RouteID
	}
	lineName := idx.RouteShortName(routeID)
	if lineName == "" {
		lineName = routeID
	}

	sequence := uint32(row.StopSequence)
	if len(p.tripUpdate.StopTimeUpdates) > 0 {
		sequence = p.tripUpdate.StopTimeUpdates[0].StopSequence
	} else if p.vehicle.CurrentStopSequence > 0 {
		sequence = p.vehicle.CurrentStopSequence
	}

	return DelayRecord{
		TripID:              tripID,
		StopID:              stopID,
		CurrentStopSequence: sequence,
		CurrentStatus:       p.vehicle.Status,
		LineName:            lineName,
		StopName:            idx.StopName(stopID),
		Delay:               p.vehicle.Timestamp - scheduled.Unix(),
		LastUpdate:          p.vehicle.Timestamp,
		RouteID:             routeID,
		Headsign:            trip.TripHeadsign,
	}, nil
}

// scheduledAt anchors a service time on a calendar date according to the anchor policy
func (r *Reconciler) scheduledAt(idx *schedule.Index, tu *TripUpdate, serviceID string, seconds int, observed, now time.Time) (time.Time, error) {
	loc := idx.Location()
	today := schedule.DateKey(now.In(loc))

	if r.anchor == AnchorWallClock {
		return schedule.ServiceInstant(today, seconds, loc)
	}

	if tu.StartDate != "" {
		if at, err := schedule.ServiceInstant(tu.StartDate, seconds, loc); err == nil {
			return at, nil
		}
	}

	todayDate, err := schedule.ParseDateKey(today)
	if err != nil {
		return time.Time{}, err
	}
	yesterday := todayDate.AddDate(0, 0, -1).Format(schedule.DateKeyLayout)

	var best time.Time
	var bestDiff time.Duration
	for _, key := range []string{today, yesterday} {
		if !idx.ServiceRunsOn(serviceID, key) {
			continue
		}
		at, err := schedule.ServiceInstant(key, seconds, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("anchor %s: %w", key, err)
		}
		diff := observed.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if best.IsZero() || diff < bestDiff {
			best, bestDiff = at, diff
		}
	}
	if best.IsZero() {
		return schedule.ServiceInstant(today, seconds, loc)
	}
	return best, nil
}
