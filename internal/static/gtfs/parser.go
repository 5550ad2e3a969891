package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Parse reads a GTFS zip file and returns parsed data
func Parse(zipPath string) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	return parseArchive(&r.Reader)
}

// ParseBytes parses an in-memory GTFS zip archive
func ParseBytes(b []byte) (*Data, error) {
	r, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	return parseArchive(r)
}

func parseArchive(r *zip.Reader) (*Data, error) {
	files := make(map[string]*zip.File)
	for _, f := range r.File {
		// Some producers nest the tables in a folder
		name := f.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		files[name] = f
	}

	for _, required := range []string{"routes.txt", "trips.txt", "stops.txt", "stop_times.txt"} {
		if _, ok := files[required]; !ok {
			return nil, fmt.Errorf("archive is missing %s", required)
		}
	}

	data := &Data{}
	tables := []struct {
		name  string
		parse func(*zip.File, *Data) error
	}{
		{"agency.txt", parseAgencies},
		{"routes.txt", parseRoutes},
		{"stops.txt", parseStops},
		{"trips.txt", parseTrips},
		{"stop_times.txt", parseStopTimes},
		{"calendar.txt", parseCalendar},
		{"calendar_dates.txt", parseCalendarDates},
	}
	for _, table := range tables {
		f, ok := files[table.name]
		if !ok {
			continue
		}
		if err := table.parse(f, data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", table.name, err)
		}
	}

	slog.Default().Info("gtfs_parsed",
		slog.Int("routes", len(data.Routes)),
		slog.Int("stops", len(data.Stops)),
		slog.Int("trips", len(data.Trips)),
		slog.Int("stop_times", len(data.StopTimes)),
		slog.Int("services", len(data.Calendar)),
		slog.Int("exceptions", len(data.Exceptions)))

	return data, nil
}

// row is one CSV record addressed by column name
type row struct {
	record []string
	idx    map[string]int
}

func (r row) get(field string) string {
	if i, ok := r.idx[field]; ok && i < len(r.record) {
		return strings.TrimSpace(r.record[i])
	}
	return ""
}

func (r row) getInt(field string) int {
	v, _ := strconv.Atoi(r.get(field))
	return v
}

func (r row) getFloat(field string) float64 {
	v, _ := strconv.ParseFloat(r.get(field), 64)
	return v
}

func (r row) getFlag(field string) bool {
	return r.get(field) == "1"
}

// readTable streams every record of a table file through fn.
// Malformed records are skipped.
func readTable(f *zip.File, fn func(row)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	idx := makeIndex(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			continue
		}
		fn(row{record: record, idx: idx})
	}
}

func parseAgencies(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		data.Agencies = append(data.Agencies, Agency{
			AgencyID:       r.get("agency_id"),
			AgencyName:     r.get("agency_name"),
			AgencyURL:      r.get("agency_url"),
			AgencyTimezone: r.get("agency_timezone"),
		})
	})
}

func parseRoutes(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		data.Routes = append(data.Routes, Route{
			RouteID:        r.get("route_id"),
			AgencyID:       r.get("agency_id"),
			RouteShortName: r.get("route_short_name"),
			RouteLongName:  r.get("route_long_name"),
			RouteType:      r.getInt("route_type"),
			RouteColor:     r.get("route_color"),
		})
	})
}

func parseStops(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		data.Stops = append(data.Stops, Stop{
			StopID:   r.get("stop_id"),
			StopCode: r.get("stop_code"),
			StopName: r.get("stop_name"),
			StopLat:  r.getFloat("stop_lat"),
			StopLon:  r.getFloat("stop_lon"),
		})
	})
}

func parseTrips(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		data.Trips = append(data.Trips, Trip{
			RouteID:      r.get("route_id"),
			ServiceID:    r.get("service_id"),
			TripID:       r.get("trip_id"),
			TripHeadsign: r.get("trip_headsign"),
			DirectionID:  r.getInt("direction_id"),
			ShapeID:      r.get("shape_id"),
		})
	})
}

func parseStopTimes(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		data.StopTimes = append(data.StopTimes, StopTime{
			TripID:        r.get("trip_id"),
			ArrivalTime:   r.get("arrival_time"),
			DepartureTime: r.get("departure_time"),
			StopID:        r.get("stop_id"),
			StopSequence:  r.getInt("stop_sequence"),
		})
	})
}

func parseCalendar(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		data.Calendar = append(data.Calendar, CalendarService{
			ServiceID: r.get("service_id"),
			Monday:    r.getFlag("monday"),
			Tuesday:   r.getFlag("tuesday"),
			Wednesday: r.getFlag("wednesday"),
			Thursday:  r.getFlag("thursday"),
			Friday:    r.getFlag("friday"),
			Saturday:  r.getFlag("saturday"),
			Sunday:    r.getFlag("sunday"),
			StartDate: r.get("start_date"),
			EndDate:   r.get("end_date"),
		})
	})
}

func parseCalendarDates(f *zip.File, data *Data) error {
	return readTable(f, func(r row) {
		exceptionType := ExceptionType(r.getInt("exception_type"))
		if exceptionType != ServiceAdded && exceptionType != ServiceRemoved {
			return
		}
		data.Exceptions = append(data.Exceptions, CalendarException{
			ServiceID:     r.get("service_id"),
			Date:          r.get("date"),
			ExceptionType: exceptionType,
		})
	})
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// Strip a UTF-8 BOM on the first column
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}
