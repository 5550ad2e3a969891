package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/libellus/transit/internal/config"
	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/static"
)

var (
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	lineStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	lateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "libellus",
	Short: "Query a GTFS schedule and its real-time delays",
	Long: `libellus loads a GTFS static feed, answers schedule questions about
stops and trips, and reconciles a GTFS-RT feed against it to report delays.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.LogLevel
		}
		logger = logging.NewStructuredLogger(os.Stderr, logging.ParseLevel(level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("offline", false, "use the cached static archive without downloading")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadIndex builds the schedule index, refreshing the cached archive unless
// --offline is set
func loadIndex(cmd *cobra.Command) (*schedule.Index, error) {
	offline, _ := cmd.Flags().GetBool("offline")
	if offline {
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		return static.Open(cfg.CacheDir, loc, logger)
	}

	loader, err := static.NewLoader(cfg, logger)
	if err != nil {
		return nil, err
	}
	return loader.Load(commandContext(cmd))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
