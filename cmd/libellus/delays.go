package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/report"
	"github.com/libellus/transit/internal/snapshot"
)

var delaysCmd = &cobra.Command{
	Use:   "delays",
	Short: "Fetch the real-time feed once and print per-vehicle delays",
	RunE: func(cmd *cobra.Command, args []string) error {
		record, _ := cmd.Flags().GetBool("record")
		pairing, _ := cmd.Flags().GetString("pairing")
		anchor, _ := cmd.Flags().GetString("anchor")
		if err := cfg.OverridePolicies(pairing, anchor); err != nil {
			return err
		}

		idx, err := loadIndex(cmd)
		if err != nil {
			return err
		}

		client := realtime.NewClient(cfg.GTFSRTURL, cfg.FetchTimeout, cfg.FeedHeaders())
		feed, err := client.FetchFeed(commandContext(cmd))
		if err != nil {
			return err
		}

		reconciler := realtime.NewReconciler(
			realtime.WithPairing(realtime.PairingPolicy(cfg.PairingPolicy)),
			realtime.WithAnchor(realtime.AnchorPolicy(cfg.AnchorPolicy)),
			realtime.WithLogger(logger),
		)
		result := reconciler.Reconcile(feed, idx)

		fmt.Println(headingStyle.Render(fmt.Sprintf("%d vehicles reconciled", len(result.Records))))
		for _, rec := range result.Records {
			delay := fmt.Sprintf("%+ds", rec.Delay)
			if rec.Delay >= 60 {
				delay = lateStyle.Render(delay)
			}
			fmt.Printf("  %s %-28s %s %s\n",
				lineStyle.Render(rec.LineName),
				rec.StopName,
				delay,
				dimStyle.Render(report.Bucket(rec.Delay)))
		}
		if len(result.Diagnostics) > 0 {
			fmt.Println(dimStyle.Render(fmt.Sprintf("%d entities skipped", len(result.Diagnostics))))
		}

		if record {
			store, err := snapshot.NewStore(cfg.SnapshotDir, logger)
			if err != nil {
				return err
			}
			snap, err := store.Record(time.Now(), result.Records)
			if err != nil {
				return err
			}
			if snap != nil {
				fmt.Printf("snapshot written to %s\n", snap.Path)
			}
		}
		return nil
	},
}

func init() {
	delaysCmd.Flags().Bool("record", false, "persist the reconciled records as a snapshot")
	delaysCmd.Flags().String("pairing", "", "pairing policy (trip, positional)")
	delaysCmd.Flags().String("anchor", "", "anchor policy (service-day, wall-clock)")
	rootCmd.AddCommand(delaysCmd)
}
