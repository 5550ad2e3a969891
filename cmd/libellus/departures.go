package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var departuresCmd = &cobra.Command{
	Use:   "departures <stopId>",
	Short: "List the next scheduled arrivals at a stop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		atFlag, _ := cmd.Flags().GetString("at")
		limit, _ := cmd.Flags().GetInt("limit")

		idx, err := loadIndex(cmd)
		if err != nil {
			return err
		}

		ref := time.Now()
		if atFlag != "" {
			ref, err = time.ParseInLocation("2006-01-02T15:04", atFlag, idx.Location())
			if err != nil {
				return fmt.Errorf("invalid --at %q, expected YYYY-MM-DDTHH:MM: %w", atFlag, err)
			}
		}

		stopID := args[0]
		stopName := idx.StopName(stopID)
		if stopName == "" {
			stopName = stopID
		}
		fmt.Println(headingStyle.Render(fmt.Sprintf("Next departures at %s", stopName)))

		deps := idx.NextDepartures(stopID, ref)
		if len(deps) == 0 {
			fmt.Println(dimStyle.Render("No scheduled departures for the rest of the service day."))
			return nil
		}
		if limit > 0 && len(deps) > limit {
			deps = deps[:limit]
		}

		for _, d := range deps {
			fmt.Printf("  [%s] %s -> %s %s\n",
				d.ScheduledAt.In(idx.Location()).Format("15:04"),
				lineStyle.Render(idx.RouteShortName(d.RouteID)),
				d.TripHeadsign,
				dimStyle.Render(d.TripID))
		}
		return nil
	},
}

func init() {
	departuresCmd.Flags().String("at", "", "reference local time (YYYY-MM-DDTHH:MM), defaults to now")
	departuresCmd.Flags().Int("limit", 20, "maximum number of departures to print (0 for all)")
	rootCmd.AddCommand(departuresCmd)
}
