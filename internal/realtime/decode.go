package realtime

import (
	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Decode converts a protobuf feed message into a Feed, keeping entity order.
// Absent optional fields decode to zero values.
func Decode(msg *gtfs.FeedMessage) *Feed {
	feed := &Feed{}
	if msg == nil {
		return feed
	}
	if msg.Header != nil {
		feed.Timestamp = int64(msg.Header.GetTimestamp())
	}

	feed.Entities = make([]Entity, 0, len(msg.Entity))
	for _, entity := range msg.Entity {
		if entity == nil {
			continue
		}
		e := Entity{ID: entity.GetId()}
		if entity.Vehicle != nil {
			e.Vehicle = decodeVehicle(entity.Vehicle)
		}
		if entity.TripUpdate != nil {
			e.TripUpdate = decodeTripUpdate(entity.TripUpdate)
		}
		feed.Entities = append(feed.Entities, e)
	}

	return feed
}

func decodeVehicle(vehicle *gtfs.VehiclePosition) *VehicleObservation {
	obs := &VehicleObservation{
		StopID:              vehicle.GetStopId(),
		CurrentStopSequence: vehicle.GetCurrentStopSequence(),
		Timestamp:           int64(vehicle.GetTimestamp()),
	}
	if vehicle.Trip != nil {
		obs.TripID = vehicle.Trip.GetTripId()
		obs.RouteID = vehicle.Trip.GetRouteId()
	}
	if vehicle.Vehicle != nil {
		obs.VehicleID = vehicle.Vehicle.GetId()
	}
	if vehicle.CurrentStatus != nil {
		obs.Status = StatusMap[int32(*vehicle.CurrentStatus)]
	}
	return obs
}

func decodeTripUpdate(tripUpdate *gtfs.TripUpdate) *TripUpdate {
	tu := &TripUpdate{}
	if tripUpdate.Trip != nil {
		tu.TripID = tripUpdate.Trip.GetTripId()
		tu.RouteID = tripUpdate.Trip.GetRouteId()
		tu.StartDate = tripUpdate.Trip.GetStartDate()
	}
	for _, stu := range tripUpdate.StopTimeUpdate {
		if stu == nil {
			continue
		}
		tu.StopTimeUpdates = append(tu.StopTimeUpdates, StopTimeUpdate{
			StopSequence: stu.GetStopSequence(),
			StopID:       stu.GetStopId(),
		})
	}
	return tu
}
