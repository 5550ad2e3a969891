package schedule

import (
	"time"

	"github.com/libellus/transit/internal/static/gtfs"
)

var paris = time.FixedZone("CET", 3600)

// fixtureData: weekday service WD1 (removed on 2024-01-01), weekend service
// WE1 (added on 2024-01-02). Stop S1 is served by T1 at 08:15, T2 at 25:05
// (01:05 next day) and the weekend trip T3. Stop-time rows are deliberately
// out of sequence order.
func fixtureData() *gtfs.Data {
	return &gtfs.Data{
		Routes: []gtfs.Route{
			{RouteID: "R1", RouteShortName: "1", RouteLongName: "Gare - Hopital"},
			{RouteID: "R2", RouteShortName: "2", RouteLongName: "Centre - Lycee"},
		},
		Stops: []gtfs.Stop{
			{StopID: "S1", StopName: "Gare"},
			{StopID: "S2", StopName: "Hopital"},
			{StopID: "S3", StopName: "Lycee"},
		},
		Trips: []gtfs.Trip{
			{TripID: "T1", RouteID: "R1", ServiceID: "WD1", TripHeadsign: "Hopital"},
			{TripID: "T2", RouteID: "R2", ServiceID: "WD1", TripHeadsign: "Lycee"},
			{TripID: "T3", RouteID: "R1", ServiceID: "WE1", TripHeadsign: "Hopital"},
			{TripID: "T4", RouteID: "R2", ServiceID: "GHOST", TripHeadsign: "Nowhere"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T1", StopID: "S2", StopSequence: 2, ArrivalTime: "08:30:00", DepartureTime: "08:30:00"},
			{TripID: "T1", StopID: "S1", StopSequence: 1, ArrivalTime: "08:15:00", DepartureTime: "08:15:00"},
			{TripID: "T2", StopID: "S3", StopSequence: 3, ArrivalTime: "25:20:00", DepartureTime: "25:20:00"},
			{TripID: "T2", StopID: "S1", StopSequence: 1, ArrivalTime: "25:05:00", DepartureTime: "25:05:00"},
			{TripID: "T2", StopID: "S2", StopSequence: 2, ArrivalTime: "25:10:00", DepartureTime: "25:11:00"},
			{TripID: "T3", StopID: "S1", StopSequence: 1, ArrivalTime: "10:00:00", DepartureTime: "10:00:00"},
			{TripID: "T4", StopID: "S1", StopSequence: 1, ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
		},
		Calendar: []gtfs.CalendarService{
			{ServiceID: "WD1", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true},
			{ServiceID: "WE1", Saturday: true, Sunday: true, StartDate: "20240101", EndDate: "20241231"},
		},
		Exceptions: []gtfs.CalendarException{
			{ServiceID: "WD1", Date: "20240101", ExceptionType: gtfs.ServiceRemoved},
			{ServiceID: "WE1", Date: "20240102", ExceptionType: gtfs.ServiceAdded},
		},
	}
}

func fixtureIndex() *Index {
	return Build(fixtureData(), paris)
}
