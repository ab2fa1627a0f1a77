package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rotator/internal/domain"
	"rotator/internal/store"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// ErrNoFill is returned when a period has too few prices to execute.
var ErrNoFill = errors.New("no fill")

// SimulatorBroker implements the Broker interface for backtesting. It fills
// orders from stored month-end prices without making external calls.
type SimulatorBroker struct {
	prices store.PriceReader
}

// NewSimulatorBroker creates a SimulatorBroker that prices fills from r.
func NewSimulatorBroker(r store.PriceReader) *SimulatorBroker {
	return &SimulatorBroker{prices: r}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// RoundTrip reads the prices in [open, close]. The buy fills at the
// second-to-last point and the sell at the last, so at least two points are
// needed. The return is 0 when the buy price is not positive.
func (b *SimulatorBroker) RoundTrip(ctx context.Context, symbol string, open, close time.Time, notional float64) (domain.Fill, error) {
	s, err := b.prices.ReadPrices(ctx, symbol, open, close)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("pricing %s: %w", symbol, err)
	}
	if s.Len() < 2 {
		return domain.Fill{}, fmt.Errorf("%s has %d prices in [%s, %s]: %w", symbol, s.Len(),
			open.Format(domain.DateLayout), close.Format(domain.DateLayout), ErrNoFill)
	}

	buy := s.Points[s.Len()-2].AdjClose
	sell := s.Points[s.Len()-1].AdjClose

	f := domain.Fill{Symbol: symbol, BuyPrice: buy, SellPrice: sell}
	if buy > 0 {
		f.Return = sell/buy - 1
		f.Units = notional / buy
	}
	return f, nil
}
