// Package builtins provides built-in selector implementations that ship with
// the rotator.
package builtins

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"rotator/internal/analytics"
	"rotator/internal/domain"
	"rotator/internal/store"
	"rotator/internal/strategy"
	"rotator/internal/universe"
	"rotator/internal/util"
)

// Compile-time interface check.
var _ strategy.Selector = (*MomentumRotation)(nil)

// LongWindowMonths is the history fetched per asset for momentum, the long
// volatility and the correlation matrix.
const LongWindowMonths = 13

// Params configures MomentumRotation.
type Params struct {
	MomentumMin    float64
	MomentumMax    float64
	MaxAssets      int
	VolShortMonths int
	VolLongMonths  int
}

// DefaultParams returns the reference parameters.
func DefaultParams() Params {
	return Params{
		MomentumMin:    0.7,
		MomentumMax:    3,
		MaxAssets:      3,
		VolShortMonths: 4,
		VolLongMonths:  12,
	}
}

// Validate reports parameters the selector cannot run with.
func (p Params) Validate() error {
	if p.MaxAssets < 1 {
		return fmt.Errorf("max assets must be >= 1, got %d", p.MaxAssets)
	}
	if p.VolShortMonths < 2 || p.VolLongMonths < 2 {
		return fmt.Errorf("volatility windows must be >= 2 months, got %d/%d", p.VolShortMonths, p.VolLongMonths)
	}
	if p.MomentumMin > p.MomentumMax {
		return fmt.Errorf("momentum band [%v, %v] is empty", p.MomentumMin, p.MomentumMax)
	}
	return nil
}

// MomentumRotation picks up to MaxAssets assets whose momentum lies in
// [MomentumMin, MomentumMax] and whose short-window volatility does not
// exceed their long-window volatility. The top-momentum asset seeds the
// pick; each further asset is the one least correlated on average with
// those already chosen.
type MomentumRotation struct {
	prices   store.PriceReader
	universe universe.Provider
	params   Params
	log      *slog.Logger
}

// NewMomentumRotation creates a MomentumRotation over the assets returned by
// u, priced from prices.
func NewMomentumRotation(prices store.PriceReader, u universe.Provider, params Params, log *slog.Logger) (*MomentumRotation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &MomentumRotation{
		prices:   prices,
		universe: u,
		params:   params,
		log:      log.With("component", "selector", "selector", "momentum-rotation"),
	}, nil
}

// Name returns "momentum-rotation".
func (m *MomentumRotation) Name() string {
	return "momentum-rotation"
}

// candidate is an asset that passed both filters.
type candidate struct {
	score domain.MomentumRecord
	vol   domain.VolatilityRecord
}

// Select returns the selection as of asOf. Assets without enough history are
// excluded for this date only. No qualifying asset yields an empty
// Selection and a nil error.
func (m *MomentumRotation) Select(ctx context.Context, asOf time.Time) (domain.Selection, error) {
	sel := domain.Selection{AsOf: asOf}

	assets, err := m.universe.ListAssets(ctx)
	if err != nil {
		return sel, fmt.Errorf("listing universe: %w", err)
	}

	cache := newWindowCache(m.prices, asOf)
	longStart := util.AddMonths(asOf, -LongWindowMonths)
	shortStart := util.AddMonths(asOf, -m.params.VolShortMonths)

	long := make(map[string]domain.PriceSeries, len(assets))
	var volPassed []string
	var pool []candidate

	for _, sym := range assets {
		if err := ctx.Err(); err != nil {
			return sel, err
		}

		ls, err := cache.Window(ctx, sym, longStart)
		if err != nil {
			m.log.Debug("asset excluded", "symbol", sym, "date", asOf.Format(domain.DateLayout), "error", err)
			continue
		}
		ss, err := cache.Window(ctx, sym, shortStart)
		if err != nil {
			m.log.Debug("asset excluded", "symbol", sym, "date", asOf.Format(domain.DateLayout), "error", err)
			continue
		}
		long[sym] = ls

		shortVol, errS := analytics.Volatility(ss, m.params.VolShortMonths)
		longVol, errL := analytics.Volatility(ls, m.params.VolLongMonths)
		if errS != nil || errL != nil {
			continue
		}
		vr := domain.VolatilityRecord{Symbol: sym, Short: shortVol, Long: longVol}
		if vr.Short > vr.Long {
			continue
		}
		volPassed = append(volPassed, sym)

		score, err := analytics.Momentum(ls)
		if err != nil {
			continue
		}
		if score < m.params.MomentumMin || score > m.params.MomentumMax {
			continue
		}
		pool = append(pool, candidate{score: domain.MomentumRecord{Symbol: sym, Score: score}, vol: vr})
	}

	if len(pool) == 0 {
		m.log.Info("no candidates, holding cash",
			"date", asOf.Format(domain.DateLayout),
			"assets", len(assets),
			"vol_passed", len(volPassed),
		)
		return sel, nil
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score.Score > pool[j].score.Score })

	matrix := analytics.BuildCorrelation(long, volPassed)
	picked := greedyPick(pool, matrix, m.params.MaxAssets)

	byName := make(map[string]candidate, len(pool))
	for _, c := range pool {
		byName[c.score.Symbol] = c
	}
	for _, sym := range picked {
		c := byName[sym]
		var peers []string
		for _, other := range picked {
			if other != sym {
				peers = append(peers, other)
			}
		}
		avg, _ := matrix.MeanTo(sym, peers)
		sel.Symbols = append(sel.Symbols, sym)
		sel.Metrics = append(sel.Metrics, domain.AssetMetrics{
			Symbol:         sym,
			Momentum:       c.score.Score,
			ShortVol:       c.vol.Short,
			LongVol:        c.vol.Long,
			AvgCorrelation: analytics.Finite(avg),
		})
	}

	m.log.Debug("selection made",
		"date", asOf.Format(domain.DateLayout),
		"symbols", sel.Symbols,
		"candidates", len(pool),
		"price_reads", cache.reads,
	)
	return sel, nil
}

// greedyPick seeds with the first (highest momentum) candidate and then
// repeatedly adds the remaining candidate with the strictly lowest mean
// correlation to the picked set. Candidates without any defined correlation
// are skipped; the pick stops when none has data.
func greedyPick(pool []candidate, matrix *analytics.CorrelationMatrix, maxAssets int) []string {
	picked := []string{pool[0].score.Symbol}
	remaining := make([]string, 0, len(pool)-1)
	for _, c := range pool[1:] {
		remaining = append(remaining, c.score.Symbol)
	}

	for len(picked) < maxAssets && len(remaining) > 0 {
		best := -1
		bestMean := math.Inf(1)
		for i, sym := range remaining {
			mean, ok := matrix.MeanTo(sym, picked)
			if !ok {
				continue
			}
			if mean < bestMean {
				bestMean = mean
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked = append(picked, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return picked
}
