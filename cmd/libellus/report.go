package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/libellus/transit/internal/report"
	"github.com/libellus/transit/internal/snapshot"
	"github.com/libellus/transit/internal/static"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the delay report from the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshot.NewStore(cfg.SnapshotDir, logger)
		if err != nil {
			return err
		}

		rep, err := report.NewGenerator(store, cfg.ReportArtifactPath, cfg.FreshnessWindow, logger).Generate()
		if err != nil {
			return err
		}

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		return report.TableRenderer{Location: loc}.Render(os.Stdout, rep)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download the static feed if the cached copy is stale",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := static.NewLoader(cfg, logger)
		if err != nil {
			return err
		}
		refreshed, err := loader.RefreshIfStale(commandContext(cmd))
		if err != nil {
			return err
		}
		if refreshed {
			fmt.Printf("static feed downloaded to %s\n", loader.ArchivePath())
		} else {
			fmt.Println(dimStyle.Render("static feed is up to date"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(refreshCmd)
}
