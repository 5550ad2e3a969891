package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/libellus/transit/internal/schedule"
)

var tripCmd = &cobra.Command{
	Use:   "trip <tripId>",
	Short: "Show the stops and duration of a trip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(cmd)
		if err != nil {
			return err
		}

		tripID := args[0]
		trip, ok := idx.Trip(tripID)
		if !ok {
			return fmt.Errorf("trip %s: %w", tripID, schedule.ErrNotFound)
		}

		fmt.Println(headingStyle.Render(fmt.Sprintf("Trip %s", tripID)))
		fmt.Printf("  line %s", lineStyle.Render(idx.RouteShortName(trip.RouteID)))
		if trip.TripHeadsign != "" {
			fmt.Printf(" -> %s", trip.TripHeadsign)
		}
		fmt.Println()

		if duration, err := idx.TripDuration(tripID); err == nil {
			fmt.Printf("  duration %s\n", duration)
		}
		if last, ok := idx.LastStop(tripID); ok {
			fmt.Printf("  terminates at %s\n", idx.StopName(last))
		}

		fmt.Println()
		for _, row := range idx.StopTimesForTrip(tripID) {
			lines := idx.RoutesThroughStop(row.StopID)
			names := make([]string, 0, len(lines))
			for _, routeID := range lines {
				names = append(names, idx.RouteShortName(routeID))
			}
			fmt.Printf("  %3d  %s  %-30s %s\n",
				row.StopSequence,
				row.ArrivalTime,
				idx.StopName(row.StopID),
				dimStyle.Render(strings.Join(names, " ")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tripCmd)
}
