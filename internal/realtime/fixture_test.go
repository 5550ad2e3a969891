package realtime

import (
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/static/gtfs"
)

var cet = time.FixedZone("CET", 3600)

// testIndex: T1 (line 1) leaves S1 at 08:15 and S2 at 08:30, T2 (line 2)
// leaves S1 at 25:05 and S2 at 25:11. Both run Monday to Friday.
func testIndex() *schedule.Index {
	return schedule.Build(&gtfs.Data{
		Routes: []gtfs.Route{
			{RouteID: "R1", RouteShortName: "1"},
			{RouteID: "R2", RouteShortName: "2"},
		},
		Stops: []gtfs.Stop{
			{StopID: "S1", StopName: "Gare"},
			{StopID: "S2", StopName: "Hopital"},
			{StopID: "S3", StopName: "Lycee"},
		},
		Trips: []gtfs.Trip{
			{TripID: "T1", RouteID: "R1", ServiceID: "WD", TripHeadsign: "Hopital"},
			{TripID: "T2", RouteID: "R2", ServiceID: "WD", TripHeadsign: "Lycee"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T1", StopID: "S1", StopSequence: 1, ArrivalTime: "08:15:00", DepartureTime: "08:15:00"},
			{TripID: "T1", StopID: "S2", StopSequence: 2, ArrivalTime: "08:30:00", DepartureTime: "08:30:00"},
			{TripID: "T2", StopID: "S1", StopSequence: 1, ArrivalTime: "25:05:00", DepartureTime: "25:05:00"},
			{TripID: "T2", StopID: "S2", StopSequence: 2, ArrivalTime: "25:10:00", DepartureTime: "25:11:00"},
		},
		Calendar: []gtfs.CalendarService{
			{ServiceID: "WD", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true},
		},
	}, cet)
}

func at(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, cet)
}

func vehicleEntity(id, tripID, stopID string, ts time.Time) Entity {
	return Entity{ID: id, Vehicle: &VehicleObservation{
		TripID:    tripID,
		StopID:    stopID,
		Status:    "STOPPED_AT",
		Timestamp: ts.Unix(),
	}}
}

func tripUpdateEntity(id, tripID, startDate string) Entity {
	return Entity{ID: id, TripUpdate: &TripUpdate{TripID: tripID, StartDate: startDate}}
}

// feedMessage builds a protobuf feed with one combined entity per trip
func feedMessage(t *testing.T, ts time.Time, trips map[string]string) *gtfsrt.FeedMessage {
	t.Helper()

	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(ts.Unix())),
		},
	}
	for tripID, stopID := range trips {
		msg.Entity = append(msg.Entity, &gtfsrt.FeedEntity{
			Id: proto.String("e-" + tripID),
			Vehicle: &gtfsrt.VehiclePosition{
				Trip:          &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
				StopId:        proto.String(stopID),
				CurrentStatus: gtfsrt.VehiclePosition_STOPPED_AT.Enum(),
				Timestamp:     proto.Uint64(uint64(ts.Unix())),
			},
			TripUpdate: &gtfsrt.TripUpdate{
				Trip: &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
			},
		})
	}
	return msg
}

func marshal(t *testing.T, msg *gtfsrt.FeedMessage) []byte {
	t.Helper()
	b, err := proto.Marshal(msg)
	require.NoError(t, err)
	return b
}
