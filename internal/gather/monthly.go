package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"rotator/internal/domain"
	"rotator/internal/store"
	"rotator/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*MonthlyBarGatherer)(nil)

// FirstTradingDay holds the listing dates of the reference ETFs. Requests
// for these symbols never start earlier.
var FirstTradingDay = map[string]string{
	"SPY":  "1993-01-22",
	"QQQ":  "1999-03-10",
	"GLD":  "2004-11-18",
	"EEM":  "2003-04-07",
	"FXI":  "2004-10-05",
	"EWZ":  "2000-07-10",
	"XLF":  "1998-12-16",
	"XLC":  "2018-06-18",
	"IEUR": "2014-06-10",
	"XLY":  "1998-12-16",
	"VEA":  "2007-07-20",
	"XLRE": "2015-10-07",
	"XLB":  "1998-12-16",
	"IVE":  "2000-05-15",
	"IVW":  "2000-05-15",
}

// MonthlyOptions configures a MonthlyBarGatherer.
type MonthlyOptions struct {
	StartDate       time.Time
	RateLimitPerMin int
	MaxAttempts     int
	RetryDelay      time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// MonthlyBarGatherer downloads daily bars, resamples them to month-ends and
// writes them to the store. Each run resumes from the day after the latest
// stored bar and stops at the last completed month-end.
type MonthlyBarGatherer struct {
	source  BarSource
	store   store.BarWriter
	symbols []string
	opts    MonthlyOptions
	limiter *util.RateLimiter
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
	log     *slog.Logger
}

// NewMonthlyBarGatherer creates a MonthlyBarGatherer for symbols.
func NewMonthlyBarGatherer(src BarSource, w store.BarWriter, symbols []string, opts MonthlyOptions, log *slog.Logger) *MonthlyBarGatherer {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("gatherer", "monthly-bars")
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	st := gobreaker.Settings{
		Name:    "alpaca-bars",
		Timeout: opts.BreakerCooldown,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= failures }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	}

	return &MonthlyBarGatherer{
		source:  src,
		store:   w,
		symbols: symbols,
		opts:    opts,
		limiter: util.NewRateLimiter(opts.RateLimitPerMin),
		breaker: gobreaker.NewCircuitBreaker(st),
		now:     time.Now,
		log:     log,
	}
}

// Name returns the gatherer identifier.
func (g *MonthlyBarGatherer) Name() string { return "monthly-bars" }

// Run updates every symbol. A symbol that fails is logged and skipped; Run
// returns an error only when ctx is cancelled or every symbol failed.
func (g *MonthlyBarGatherer) Run(ctx context.Context) error {
	until := util.LastCompletedMonthEnd(g.now().UTC())
	g.log.Info("starting monthly ingestion",
		"symbols", len(g.symbols),
		"until", until.Format(domain.DateLayout),
	)

	var written, upToDate, failed int
	for _, sym := range g.symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := g.updateSymbol(ctx, strings.ToUpper(sym), until)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			g.log.Error("symbol update failed", "symbol", sym, "error", err)
		case n == 0:
			upToDate++
		default:
			written += n
		}
	}

	g.log.Info("monthly ingestion complete",
		"bars_written", written,
		"up_to_date", upToDate,
		"failed", failed,
	)
	if failed > 0 && failed == len(g.symbols) {
		return fmt.Errorf("all %d symbols failed", failed)
	}
	return nil
}

// Range returns the fetch window of symbol: from the day after its latest
// stored bar (or the configured start, not before its listing date) up to
// until.
func (g *MonthlyBarGatherer) Range(ctx context.Context, symbol string, until time.Time) (DateRange, error) {
	start := g.opts.StartDate
	if first, ok := FirstTradingDay[symbol]; ok {
		if d, err := time.Parse(domain.DateLayout, first); err == nil && d.After(start) {
			start = d
		}
	}

	latest, err := g.store.LatestDate(ctx, symbol)
	switch {
	case err == nil:
		start = latest.AddDate(0, 0, 1)
	case errors.Is(err, store.ErrNotFound):
	default:
		return DateRange{}, fmt.Errorf("latest stored date: %w", err)
	}
	return DateRange{Start: start, End: until}, nil
}

func (g *MonthlyBarGatherer) updateSymbol(ctx context.Context, symbol string, until time.Time) (int, error) {
	r, err := g.Range(ctx, symbol, until)
	if err != nil {
		return 0, err
	}
	if r.Empty() {
		g.log.Debug("symbol up to date", "symbol", symbol)
		return 0, nil
	}

	raw, err := g.fetch(ctx, symbol, r, false)
	if err != nil {
		return 0, err
	}
	adjusted, err := g.fetch(ctx, symbol, r, true)
	if err != nil {
		return 0, err
	}

	bars := MonthlyBars(symbol, raw, adjusted, until)
	if len(bars) == 0 {
		g.log.Info("no new monthly bars", "symbol", symbol,
			"start", r.Start.Format(domain.DateLayout), "end", r.End.Format(domain.DateLayout))
		return 0, nil
	}
	if err := g.store.WriteBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("writing bars: %w", err)
	}
	g.log.Info("symbol updated", "symbol", symbol, "bars", len(bars),
		"first", bars[0].Date.Format(domain.DateLayout),
		"last", bars[len(bars)-1].Date.Format(domain.DateLayout))
	return len(bars), nil
}

// fetch calls the source behind the rate limiter and circuit breaker,
// retrying transient failures. An open breaker is not retried.
func (g *MonthlyBarGatherer) fetch(ctx context.Context, symbol string, r DateRange, adjusted bool) ([]DailyBar, error) {
	var bars []DailyBar
	err := util.Retry(ctx, g.opts.MaxAttempts, g.opts.RetryDelay, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		res, err := g.breaker.Execute(func() (interface{}, error) {
			return g.source.DailyBars(ctx, symbol, r, adjusted)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
				return util.Permanent(err)
			}
			return err
		}
		bars = res.([]DailyBar)
		return nil
	})
	if err != nil {
		kind := "raw"
		if adjusted {
			kind = "adjusted"
		}
		return nil, fmt.Errorf("fetching %s bars for %s: %w", kind, symbol, err)
	}
	return bars, nil
}
