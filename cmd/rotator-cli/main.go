package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"rotator/internal/config"
	"rotator/internal/domain"
	"rotator/internal/report"
	"rotator/internal/store"
	"rotator/internal/universe"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rotator-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version              Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  universe             List the configured assets and their latest stored month\n")
		fmt.Fprintf(os.Stderr, "  runs [-n 20]         List saved backtest runs (SQLite)\n")
		fmt.Fprintf(os.Stderr, "  show [-parquet] <id> Print the monthly table of a saved run\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	if os.Args[1] == "version" {
		fmt.Printf("rotator-cli %s\n", version)
		return
	}

	cfgPath := "config/rotator.yaml"
	if p := os.Getenv("ROTATOR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	switch os.Args[1] {
	case "universe":
		err = listUniverse(ctx, cfg)

	case "runs":
		fs := flag.NewFlagSet("runs", flag.ExitOnError)
		n := fs.Int("n", 20, "maximum number of runs")
		fs.Parse(os.Args[2:])
		err = listRuns(ctx, cfg, *n)

	case "show":
		fs := flag.NewFlagSet("show", flag.ExitOnError)
		fromParquet := fs.Bool("parquet", false, "read the run from the parquet results directory")
		fs.Parse(os.Args[2:])
		if fs.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "show: expected one run id\n")
			os.Exit(1)
		}
		err = showRun(ctx, cfg, fs.Arg(0), *fromParquet)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func listUniverse(ctx context.Context, cfg *config.Config) error {
	prices, closePrices, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer closePrices()

	u, err := universe.New(cfg.Universe.Source, cfg.Universe.Symbols, prices)
	if err != nil {
		return err
	}
	symbols, err := u.ListAssets(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tLATEST")
	for _, sym := range symbols {
		latest := "-"
		d, err := prices.LatestDate(ctx, sym)
		switch {
		case err == nil:
			latest = d.Format(domain.DateLayout)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", sym, latest)
	}
	return tw.Flush()
}

func listRuns(ctx context.Context, cfg *config.Config, n int) error {
	ss, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer ss.Close()

	runs, err := ss.ListRuns(ctx, n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTRATEGY\tSTART\tEND\tFINAL\tCAGR\tVOL\tSHARPE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Strategy,
			r.Start,
			r.End,
			report.FormatCapital(r.FinalCapital),
			report.FormatPercent(r.CAGR),
			report.FormatPercent(r.AnnualizedVolatility),
			report.FormatRatio(r.Sharpe),
		)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, cfg *config.Config, id string, fromParquet bool) error {
	var months []store.MonthRecord
	if fromParquet {
		_, m, _, err := store.NewParquetStore(cfg.Storage.DataDir).LoadRun(id)
		if err != nil {
			return err
		}
		months = m
	} else {
		ss, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer ss.Close()
		if months, err = ss.MonthsForRun(ctx, id); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tHOLDINGS\tRETURN\tCAPITAL\tCAGR\tVOL\tSHARPE")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Date,
			report.FormatSymbols(m.Symbols),
			report.FormatPercent(m.Return),
			report.FormatCapital(m.Capital),
			report.FormatPercent(m.CAGR),
			report.FormatPercent(m.AnnualizedVolatility),
			report.FormatRatio(m.Sharpe),
		)
	}
	return tw.Flush()
}
