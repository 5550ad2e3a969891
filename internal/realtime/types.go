package realtime

// Feed is a decoded real-time snapshot: entities in feed order
type Feed struct {
	Timestamp int64
	Entities  []Entity
}

// Entity carries an optional vehicle observation and/or trip update
type Entity struct {
	ID         string
	Vehicle    *VehicleObservation
	TripUpdate *TripUpdate
}

// VehicleObservation is the vehicle-position fragment of an entity
type VehicleObservation struct {
	TripID              string
	RouteID             string
	VehicleID           string
	StopID              string
	Status              string
	CurrentStopSequence uint32
	Timestamp           int64 // epoch seconds, 0 when absent
}

// TripUpdate is the trip-update fragment of an entity
type TripUpdate struct {
	TripID          string
	RouteID         string
	StartDate       string // YYYYMMDD, empty when absent
	StopTimeUpdates []StopTimeUpdate
}

// StopTimeUpdate is one per-stop entry of a trip update
type StopTimeUpdate struct {
	StopSequence uint32
	StopID       string
}

// DelayRecord is the computed lateness of one tracked vehicle.
// Delay is in seconds: positive is late, negative early.
// LastUpdate is the observation time in epoch seconds.
type DelayRecord struct {
	TripID              string `json:"tripId"`
	StopID              string `json:"stopId"`
	CurrentStopSequence uint32 `json:"currentStopSequence"`
	CurrentStatus       string `json:"currentStatus"`
	LineName            string `json:"lineName"`
	StopName            string `json:"stopName"`
	Delay               int64  `json:"delay"`
	LastUpdate          int64  `json:"last_update"`
	RouteID             string `json:"routeId,omitempty"`
	Headsign            string `json:"headsign,omitempty"`
}

// StatusMap maps GTFS-RT VehicleStopStatus enum to string
var StatusMap = map[int32]string{
	0: "INCOMING_AT",
	1: "STOPPED_AT",
	2: "IN_TRANSIT_TO",
}
