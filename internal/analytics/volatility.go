package analytics

import (
	"fmt"

	"rotator/internal/domain"
)

// Volatility is the sample standard deviation of the trailing window
// monthly simple returns of series. The series must hold at least window
// observations; the first (undefined) return is dropped, so a series of
// exactly window points contributes window-1 returns.
func Volatility(series domain.PriceSeries, window int) (float64, error) {
	if series.Len() < window {
		return 0, fmt.Errorf("volatility for %s needs %d points, have %d: %w",
			series.Symbol, window, series.Len(), domain.ErrInsufficientData)
	}

	returns := SimpleReturns(series.Closes())
	if len(returns) > window {
		returns = returns[len(returns)-window:]
	}
	return SampleStdDev(returns), nil
}
