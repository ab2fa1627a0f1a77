package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rotator/internal/analytics"
	"rotator/internal/domain"
	"rotator/internal/engine"
	"rotator/internal/util"
)

// BacktestResult holds the tables and summary produced by a backtest run.
type BacktestResult struct {
	Strategy       string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalCapital   float64
	Performance    domain.PerformanceSnapshot
	Months         []domain.MonthRow
	Assets         []domain.AssetRow
}

// Backtester replays month-end selections through the engine and tracks the
// capital curve.
type Backtester struct {
	registry       *Registry
	engine         *engine.Engine
	initialCapital float64
	riskFree       float64
	log            *slog.Logger
}

// NewBacktester creates a Backtester that looks up selectors in the provided
// registry and realizes their selections with eng.
func NewBacktester(registry *Registry, eng *engine.Engine, initialCapital, riskFree float64, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{
		registry:       registry,
		engine:         eng,
		initialCapital: initialCapital,
		riskFree:       riskFree,
		log:            log.With("component", "backtest"),
	}
}

// Run executes a backtest for the named selector over the month-end dates in
// [start, end]. Every date except the last is an evaluation date: the
// selection made on it is held until the next month-end. A failed selection
// is logged and the month is held in cash. Run stops early only when ctx is
// cancelled.
func (bt *Backtester) Run(ctx context.Context, name string, start, end time.Time) (*BacktestResult, error) {
	sel, ok := bt.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %v)", name, bt.registry.List())
	}
	if bt.initialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", bt.initialCapital)
	}

	dates := util.MonthEnds(start, end)
	state := domain.PortfolioState{Date: start, Capital: bt.initialCapital}
	res := &BacktestResult{
		Strategy:       name,
		Start:          start,
		End:            end,
		InitialCapital: bt.initialCapital,
		FinalCapital:   bt.initialCapital,
	}

	bt.log.Info("backtest starting",
		"strategy", name,
		"start", start.Format(domain.DateLayout),
		"end", end.Format(domain.DateLayout),
		"periods", max(len(dates)-1, 0),
	)

	for i := 0; i+1 < len(dates); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		asOf, next := dates[i], dates[i+1]

		selection, err := sel.Select(ctx, asOf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			bt.log.Warn("selection failed, holding cash",
				"date", asOf.Format(domain.DateLayout),
				"error", err,
			)
			selection = domain.Selection{AsOf: asOf}
		}

		period := bt.engine.Realize(ctx, selection, asOf, next, state.Capital)

		// Metrics see the capital after this month but only the returns of
		// earlier months, with years counted up to the evaluation date.
		perf := analytics.Evaluate(bt.initialCapital, state.Capital*(1+period.Return), state.Returns,
			analytics.YearsBetween(start, asOf), bt.riskFree)
		state.Apply(next, period.Return)

		res.Months = append(res.Months, domain.MonthRow{
			Date:                asOf,
			Symbols:             append([]string(nil), selection.Symbols...),
			Return:              period.Return,
			Capital:             state.Capital,
			PerformanceSnapshot: perf,
		})
		for _, m := range selection.Metrics {
			f, _ := period.FillFor(m.Symbol)
			res.Assets = append(res.Assets, domain.AssetRow{
				Date:           asOf,
				Symbol:         m.Symbol,
				Momentum:       m.Momentum,
				ShortVol:       m.ShortVol,
				LongVol:        m.LongVol,
				AvgCorrelation: m.AvgCorrelation,
				BuyPrice:       f.BuyPrice,
				SellPrice:      f.SellPrice,
				Units:          f.Units,
				Return:         f.Return,
			})
		}

		res.Performance = perf
		bt.log.Debug("month recorded",
			"date", asOf.Format(domain.DateLayout),
			"symbols", selection.Symbols,
			"return", period.Return,
			"capital", state.Capital,
		)
	}

	res.FinalCapital = state.Capital
	bt.log.Info("backtest finished",
		"strategy", name,
		"final_capital", res.FinalCapital,
		"cagr", res.Performance.CAGR,
		"sharpe", res.Performance.Sharpe,
	)
	return res, nil
}
