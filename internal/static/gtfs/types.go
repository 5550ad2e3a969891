package gtfs

// Data holds the parsed schedule tables, exactly as read from the archive
type Data struct {
	Agencies   []Agency
	Routes     []Route
	Stops      []Stop
	Trips      []Trip
	StopTimes  []StopTime
	Calendar   []CalendarService
	Exceptions []CalendarException
}

// Agency represents an agency from agency.txt
type Agency struct {
	AgencyID       string
	AgencyName     string
	AgencyURL      string
	AgencyTimezone string
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string `json:"route_id"`
	AgencyID       string `json:"agency_id,omitempty"`
	RouteShortName string `json:"route_short_name,omitempty"`
	RouteLongName  string `json:"route_long_name,omitempty"`
	RouteType      int    `json:"route_type"`
	RouteColor     string `json:"route_color,omitempty"`
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID   string  `json:"stop_id"`
	StopCode string  `json:"stop_code,omitempty"`
	StopName string  `json:"stop_name,omitempty"`
	StopLat  float64 `json:"stop_lat"`
	StopLon  float64 `json:"stop_lon"`
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID      string `json:"route_id"`
	ServiceID    string `json:"service_id"`
	TripID       string `json:"trip_id"`
	TripHeadsign string `json:"trip_headsign,omitempty"`
	DirectionID  int    `json:"direction_id"`
	ShapeID      string `json:"shape_id,omitempty"`
}

// StopTime represents a stop time from stop_times.txt.
// ArrivalTime and DepartureTime are HH:MM:SS and may exceed 23 hours.
type StopTime struct {
	TripID        string `json:"trip_id"`
	ArrivalTime   string `json:"arrival_time,omitempty"`
	DepartureTime string `json:"departure_time,omitempty"`
	StopID        string `json:"stop_id"`
	StopSequence  int    `json:"stop_sequence"`
}

// CalendarService represents a weekly pattern from calendar.txt
type CalendarService struct {
	ServiceID string
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
	StartDate string // YYYYMMDD, empty when not given
	EndDate   string // YYYYMMDD, empty when not given
}

// ExceptionType is the exception_type column of calendar_dates.txt
type ExceptionType int

const (
	ServiceAdded   ExceptionType = 1
	ServiceRemoved ExceptionType = 2
)

// CalendarException represents a single-date override from calendar_dates.txt
type CalendarException struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType ExceptionType
}
