// Package broker defines the Broker interface and the simulated fill model
// used by the backtest engine.
package broker

import (
	"context"
	"time"

	"rotator/internal/domain"
)

// Broker fills a round trip in one asset over a holding period.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulator").
	Name() string

	// RoundTrip buys notional worth of symbol for the period (open, close]
	// and sells it at the end, returning the executed fill.
	RoundTrip(ctx context.Context, symbol string, open, close time.Time, notional float64) (domain.Fill, error)
}
