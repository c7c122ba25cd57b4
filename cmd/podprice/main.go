package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guarzo/podprice/internal/config"
	"github.com/guarzo/podprice/internal/ebay"
	"github.com/guarzo/podprice/internal/history"
	"github.com/guarzo/podprice/internal/model"
	"github.com/guarzo/podprice/internal/pricing"
	"github.com/guarzo/podprice/internal/progress"
	"github.com/guarzo/podprice/internal/server"
	"github.com/guarzo/podprice/internal/watch"
)

func main() {
	refreshOnce := flag.Bool("refresh-once", false, "refresh the watchlist once and exit")
	envFile := flag.String("env", "", "optional env file to load before the environment")
	quiet := flag.Bool("quiet", false, "suppress the progress bar for -refresh-once")
	flag.Parse()

	if err := run(*refreshOnce, *quiet, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "podprice:", err)
		os.Exit(1)
	}
}

func run(refreshOnce, quiet bool, envFile string) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	provider := ebay.NewProvider(cfg.Provider, cfg.EbayConfig())
	agg := pricing.NewAggregator(provider, cfg.Pricing)
	tracker := history.NewTracker(cfg.HistoryPath)

	status := agg.Status()
	logger.Info("market price provider",
		"provider", status.Provider,
		"marketplace", status.Marketplace,
		"currency", status.Currency,
		"configured", status.Configured)
	if !agg.IsConfigured() {
		logger.Warn("EBAY_APP_ID not set, market price lookups will report not configured")
	}

	variants, err := loadVariants(cfg.WatchlistPath, logger)
	if err != nil {
		return err
	}
	watcher := watch.NewWatcher(agg, tracker, variants, logger).WithWorkers(cfg.WatchWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if refreshOnce {
		return refreshWatchlist(ctx, watcher, quiet, logger)
	}

	var scheduler *watch.Scheduler
	if len(variants) > 0 {
		if scheduler, err = watch.NewScheduler(cfg.WatchSchedule, watcher, logger); err != nil {
			return err
		}
		scheduler.Start()
		logger.Info("watchlist scheduler started", "schedule", cfg.WatchSchedule, "variants", len(variants))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(agg, tracker, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop", "error", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}

func refreshWatchlist(ctx context.Context, watcher *watch.Watcher, quiet bool, logger *slog.Logger) error {
	bar := progress.WithTotal(os.Stderr, "Refreshing watchlist", len(watcher.Variants()), quiet)
	watcher.WithProgress(bar.Update)

	bar.Start()
	sum, err := watcher.RefreshAll(ctx)
	if err != nil {
		bar.FinishWithError(err)
	} else {
		bar.Finish()
	}
	logger.Info("watchlist refreshed", "updated", sum.Updated, "no_data", sum.NoData, "failed", sum.Failed)
	return err
}

// loadVariants treats a missing watchlist file as an empty watchlist.
func loadVariants(path string, logger *slog.Logger) ([]model.PartVariant, error) {
	wl, err := watch.LoadWatchlist(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no watchlist found, scheduled refresh disabled", "path", path)
			return nil, nil
		}
		return nil, err
	}
	return wl.Variants, nil
}
