package analytics

import (
	"fmt"

	"rotator/internal/domain"
)

// MomentumLookback is the number of monthly observations the score needs:
// the current month plus twelve months of history.
const MomentumLookback = 13

// Momentum computes the blended 1/3/6/12 month momentum score of a monthly
// series whose last point is the evaluation date.
//
// Formula:
//
//	12·(p0/p1) + 4·(p0/p3) + 2·(p0/p6) + (p0/p12) − 19
//
// where pN is the adjusted close N months before the last observation. A
// flat series scores exactly 0.
func Momentum(series domain.PriceSeries) (float64, error) {
	n := series.Len()
	if n < MomentumLookback {
		return 0, fmt.Errorf("momentum for %s needs %d points, have %d: %w",
			series.Symbol, MomentumLookback, n, domain.ErrInsufficientData)
	}

	closes := series.Closes()
	p0 := closes[n-1]
	p1 := closes[n-2]
	p3 := closes[n-4]
	p6 := closes[n-7]
	p12 := closes[n-13]

	score := 12*(p0/p1) + 4*(p0/p3) + 2*(p0/p6) + (p0 / p12) - 19
	return Finite(score), nil
}
