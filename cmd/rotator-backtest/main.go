// Runs the monthly momentum rotation backtest over the stored month-end
// prices and writes the per-month and per-asset tables.
//
// Usage:
//
//	go run ./cmd/rotator-backtest [-start 2005-05-31] [-end 2025-04-30] [-out dir]
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

	"github.com/google/uuid"

	"rotator/internal/broker"
	"rotator/internal/config"
	"rotator/internal/domain"
	"rotator/internal/engine"
	"rotator/internal/report"
	"rotator/internal/store"
	"rotator/internal/strategy"
	"rotator/internal/strategy/builtins"
	"rotator/internal/universe"
	"rotator/internal/util"
)

func main() {
	startFlag := flag.String("start", "", "first month-end (YYYY-MM-DD), overrides backtest.start_date")
	endFlag := flag.String("end", "", "last month-end (YYYY-MM-DD), overrides backtest.end_date")
	outFlag := flag.String("out", "", "CSV output directory, overrides output.dir")
	strategyFlag := flag.String("strategy", "", "selector name, overrides strategy.name")
	flag.Parse()

	cfgPath := "config/rotator.yaml"
	if p := os.Getenv("ROTATOR_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	start, end := cfg.BacktestRange()
	if *startFlag != "" {
		if start, err = time.Parse(domain.DateLayout, *startFlag); err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
	}
	if *endFlag != "" {
		if end, err = time.Parse(domain.DateLayout, *endFlag); err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	}
	outDir := cfg.Output.Dir
	if *outFlag != "" {
		outDir = *outFlag
	}
	name := cfg.Strategy.Name
	if *strategyFlag != "" {
		name = *strategyFlag
	}

	prices, closePrices, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open price store: %v", err)
	}
	defer closePrices()

	u, err := universe.New(cfg.Universe.Source, cfg.Universe.Symbols, prices)
	if err != nil {
		log.Fatalf("failed to build universe: %v", err)
	}

	selector, err := builtins.NewMomentumRotation(prices, u, builtins.Params{
		MomentumMin:    cfg.Strategy.MomentumMin,
		MomentumMax:    cfg.Strategy.MomentumMax,
		MaxAssets:      cfg.Strategy.MaxAssets,
		VolShortMonths: cfg.Strategy.VolShortMonths,
		VolLongMonths:  cfg.Strategy.VolLongMonths,
	}, logger)
	if err != nil {
		log.Fatalf("invalid strategy parameters: %v", err)
	}
	registry := strategy.NewRegistry()
	registry.Register(selector)

	costs, err := engine.NewCostModel(cfg.Backtest.Commission)
	if err != nil {
		log.Fatalf("invalid cost model: %v", err)
	}
	eng := engine.NewEngine(broker.NewSimulatorBroker(prices), costs, logger)
	bt := strategy.NewBacktester(registry, eng, cfg.Backtest.InitialCapital, cfg.Backtest.RiskFreeRate, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := bt.Run(ctx, name, start, end)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	runID := uuid.NewString()
	months, assets := report.Sanitize(res)
	run := report.RunRecord(runID, res, costs.Commission())
	run.CreatedAt = time.Now().UTC()

	if cfg.Output.CSV {
		paths, err := report.WriteDir(outDir, months, assets)
		if err != nil {
			log.Fatalf("failed to write CSV tables: %v", err)
		}
		slog.Info("csv tables written", "files", paths)
	}

	var sinks []store.ResultStore
	if cfg.Output.Parquet {
		sinks = append(sinks, store.NewParquetStore(cfg.Storage.DataDir))
	}
	if cfg.Output.SQLite {
		if ss, ok := prices.(*store.SQLiteStore); ok {
			sinks = append(sinks, ss)
		} else {
			ss, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
			if err != nil {
				log.Fatalf("failed to open result database: %v", err)
			}
			defer ss.Close()
			sinks = append(sinks, ss)
		}
	}
	for _, sink := range sinks {
		if err := sink.SaveRun(ctx, run, months, assets); err != nil {
			log.Fatalf("failed to save run %s: %v", runID, err)
		}
	}

	slog.Info("backtest complete",
		"run_id", runID,
		"strategy", res.Strategy,
		"months", len(months),
		"final_capital", res.FinalCapital,
		"cagr", res.Performance.CAGR,
		"annualized_volatility", res.Performance.AnnualizedVolatility,
		"sharpe", res.Performance.Sharpe,
	)
}
