package builtins

import (
	"context"
	"fmt"
	"time"

	"rotator/internal/domain"
	"rotator/internal/store"
)

// windowCache serves price windows ending at one evaluation date. Each
// symbol is read from the store once per widest window; narrower windows
// are sliced from it. A cache lives for a single Select call.
type windowCache struct {
	prices store.PriceReader
	end    time.Time
	loaded map[string]cachedWindow
	reads  int
}

type cachedWindow struct {
	start  time.Time
	series domain.PriceSeries
	err    error
}

func newWindowCache(prices store.PriceReader, end time.Time) *windowCache {
	return &windowCache{
		prices: prices,
		end:    end,
		loaded: make(map[string]cachedWindow),
	}
}

// Window returns the observations of symbol in [start, end]. A window with
// no observations is reported as store.ErrNotFound.
func (c *windowCache) Window(ctx context.Context, symbol string, start time.Time) (domain.PriceSeries, error) {
	w, ok := c.loaded[symbol]
	if !ok || start.Before(w.start) {
		c.reads++
		s, err := c.prices.ReadPrices(ctx, symbol, start, c.end)
		w = cachedWindow{start: start, series: s, err: err}
		c.loaded[symbol] = w
	}
	if w.err != nil {
		return domain.PriceSeries{}, w.err
	}
	out := w.series.Between(start, c.end)
	if out.Len() == 0 {
		return domain.PriceSeries{}, fmt.Errorf("prices for %s since %s: %w",
			symbol, start.Format(domain.DateLayout), store.ErrNotFound)
	}
	return out, nil
}
