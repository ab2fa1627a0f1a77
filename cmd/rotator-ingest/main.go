// Downloads daily bars from Alpaca, resamples them to month-ends and appends
// the new months to the configured price store.
//
// Usage:
//
//	go run ./cmd/rotator-ingest [-symbols SPY,QQQ] [-every 24h]
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rotator/internal/config"
	"rotator/internal/gather"
	"rotator/internal/store"
	"rotator/internal/universe"
	"rotator/internal/util"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols, overrides the configured universe")
	every := flag.Duration("every", 0, "repeat the update at this interval until interrupted (0 runs once)")
	flag.Parse()

	cfgPath := "config/rotator.yaml"
	if p := os.Getenv("ROTATOR_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatalf("alpaca credentials missing: set APCA_API_KEY_ID and APCA_API_SECRET_KEY")
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	prices, closePrices, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open price store: %v", err)
	}
	defer closePrices()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var u universe.Provider
	if *symbolsFlag != "" {
		u = universe.ParseList(*symbolsFlag)
	} else if u, err = universe.New(cfg.Universe.Source, cfg.Universe.Symbols, prices); err != nil {
		log.Fatalf("failed to build universe: %v", err)
	}
	symbols, err := u.ListAssets(ctx)
	if err != nil {
		log.Fatalf("failed to list universe: %v", err)
	}

	startDate, _ := time.Parse("2006-01-02", cfg.Gather.StartDate)
	g := gather.NewMonthlyBarGatherer(
		gather.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed),
		prices,
		symbols,
		gather.MonthlyOptions{
			StartDate:       startDate,
			RateLimitPerMin: cfg.Gather.RateLimitPerMin,
			MaxAttempts:     cfg.Gather.MaxAttempts,
			RetryDelay:      cfg.Gather.RetryDelay,
			BreakerFailures: cfg.Gather.BreakerFailures,
			BreakerCooldown: cfg.Gather.BreakerCooldown,
		},
		logger,
	)

	slog.Info("starting rotator-ingest", "backend", cfg.Storage.Backend, "symbols", len(symbols), "every", every.String())
	if err := g.Run(ctx); err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}
	if *every <= 0 {
		return
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("rotator-ingest stopped")
			return
		case <-ticker.C:
			if err := g.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("ingestion failed", "error", err)
			}
		}
	}
}
