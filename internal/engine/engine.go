// Package engine turns a selection into a realized portfolio return for one
// holding period.
package engine

import (
	"context"
	"log/slog"
	"time"

	"rotator/internal/analytics"
	"rotator/internal/broker"
	"rotator/internal/domain"
)

// Engine splits capital equally over a selection, fills each asset through
// a broker and nets the average return of the fills against the cost model.
type Engine struct {
	broker broker.Broker
	costs  *CostModel
	log    *slog.Logger
}

// NewEngine creates a new Engine wired with the given dependencies.
func NewEngine(b broker.Broker, costs *CostModel, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		broker: b,
		costs:  costs,
		log:    log.With("component", "engine"),
	}
}

// Realize holds sel from prev to cur with the given capital. Assets the
// broker cannot fill are logged and skipped. The return is 0 when the
// selection is empty or nothing fills.
func (e *Engine) Realize(ctx context.Context, sel domain.Selection, prev, cur time.Time, capital float64) domain.PeriodResult {
	res := domain.PeriodResult{Start: prev, End: cur}
	if sel.Empty() {
		return res
	}

	allocation := capital / float64(len(sel.Symbols))
	var returns []float64
	for _, sym := range sel.Symbols {
		f, err := e.broker.RoundTrip(ctx, sym, prev, cur, allocation)
		if err != nil {
			e.log.Warn("skipping unfilled asset",
				"symbol", sym,
				"period_end", cur.Format(domain.DateLayout),
				"error", err,
			)
			continue
		}
		f.Return = analytics.Finite(f.Return)
		f.Units = analytics.Finite(f.Units)
		res.Fills = append(res.Fills, f)
		returns = append(returns, f.Return)
	}
	if len(returns) == 0 {
		return res
	}

	gross := analytics.Mean(returns)
	res.Return = analytics.Finite(e.costs.Net(gross))
	e.log.Debug("period realized",
		"period_end", cur.Format(domain.DateLayout),
		"fills", len(res.Fills),
		"gross", gross,
		"net", res.Return,
	)
	return res
}
