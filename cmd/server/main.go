// Package main is the entry point for the busalert server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/randytsao24/busalert/internal/alerts"
	"github.com/randytsao24/busalert/internal/api"
	"github.com/randytsao24/busalert/internal/cache"
	"github.com/randytsao24/busalert/internal/checker"
	"github.com/randytsao24/busalert/internal/config"
	"github.com/randytsao24/busalert/internal/metrics"
	"github.com/randytsao24/busalert/internal/publisher"
	"github.com/randytsao24/busalert/internal/store"
	"github.com/randytsao24/busalert/internal/tracker"
	"github.com/randytsao24/busalert/internal/transit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feeds, err := config.LoadFeeds(cfg.FeedsFile)
	if err != nil {
		return err
	}
	feed, err := feeds.Select(cfg.Feed)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		msrv := collector.Serve(cfg.MetricsAddr, logger)
		defer msrv.Close()
	}

	endpoint, _, err := transit.NewEndpoint(feed,
		tracker.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		tracker.WithObserver(collector),
		tracker.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	alertStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := openNotifier(cfg, collector, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	dedupe := cache.New[struct{}](cfg.NotifyDedupe)
	defer dedupe.Close()

	checks := checker.NewService(alertStore, notifier, endpoint, cfg.Departures,
		checker.WithObserver(collector),
		checker.WithLogger(logger),
		checker.WithDedupe(dedupe),
	)
	if cfg.CheckInterval > 0 {
		logger.Info("in-process alert checks enabled", "interval", cfg.CheckInterval)
		go checks.Run(ctx, cfg.CheckInterval)
	}

	router := api.NewRouter(api.Deps{
		LiveTimes:  endpoint,
		Checker:    checks,
		Departures: cfg.Departures,
		Feed:       feed.Name,
		Timeout:    cfg.HTTPTimeout + 5*time.Second,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("busalert server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"feed", feed.Name,
			"protocol", feed.Protocol,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (alerts.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("alerts stored in file", "path", cfg.AlertsFile)
		return store.NewFile(cfg.AlertsFile), func() {}, nil
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("alerts stored in postgres")
	return pg, func() { db.Close() }, nil
}

func openNotifier(cfg *config.Config, m publisher.Metrics, logger *slog.Logger) (alerts.Notifier, func(), error) {
	if cfg.NATSURL == "" {
		return publisher.NewLogNotifier(logger), func() {}, nil
	}
	p, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, m, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing alerts to nats", "subject", cfg.NATSSubject)
	return p, p.Close, nil
}
