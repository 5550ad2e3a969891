package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/libellus/transit/internal/config"
	"github.com/libellus/transit/internal/db"
	"github.com/libellus/transit/internal/handlers"
	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/poller"
	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/report"
	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/snapshot"
	"github.com/libellus/transit/internal/static"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewStructuredLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)
	logger.Info("config loaded",
		slog.Duration("poll_interval", cfg.PollInterval),
		slog.String("pairing_policy", cfg.PairingPolicy),
		slog.String("anchor_policy", cfg.AnchorPolicy))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Static schedule
	// ═══════════════════════════════════════════════════════
	loader, err := static.NewLoader(cfg, logger)
	if err != nil {
		return err
	}
	idx, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	provider := schedule.NewProvider(idx)

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Storage
	// ═══════════════════════════════════════════════════════
	store, err := snapshot.NewStore(cfg.SnapshotDir, logger)
	if err != nil {
		return err
	}

	var stats *db.DB
	if cfg.DatabasePath != "" {
		stats, err = db.Connect(ctx, cfg.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer stats.Close()
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Poller
	// ═══════════════════════════════════════════════════════
	reconciler := realtime.NewReconciler(
		realtime.WithPairing(realtime.PairingPolicy(cfg.PairingPolicy)),
		realtime.WithAnchor(realtime.AnchorPolicy(cfg.AnchorPolicy)),
		realtime.WithLogger(logger),
	)
	opts := poller.Options{
		Feed:         realtime.NewClient(cfg.GTFSRTURL, cfg.FetchTimeout, cfg.FeedHeaders()),
		Provider:     provider,
		Reconciler:   reconciler,
		Store:        store,
		Interval:     cfg.PollInterval,
		WarmupDelay:  cfg.WarmupDelay,
		FetchTimeout: cfg.FetchTimeout,
		Retention:    cfg.Retention,
		Logger:       logger,
	}
	if stats != nil {
		opts.Stats = stats
	}
	p := poller.New(opts)

	go p.Run(ctx)
	go poller.RefreshLoop(ctx, loader, provider, 24*time.Hour, logger)

	// ═══════════════════════════════════════════════════════
	// PHASE 4: HTTP query surface
	// ═══════════════════════════════════════════════════════
	var statsRepo handlers.DelayStatsRepository
	if stats != nil {
		statsRepo = stats
	}
	router := handlers.NewRouter(
		handlers.NewHealthHandler(provider),
		handlers.NewScheduleHandler(provider),
		handlers.NewDelayHandler(p, store,
			report.NewGenerator(store, cfg.ReportArtifactPath, cfg.FreshnessWindow, logger),
			statsRepo, cfg.FreshnessWindow),
		logger,
	)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", slog.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful shutdown
	// ═══════════════════════════════════════════════════════
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
