package analytics

import (
	"math"
	"time"

	"rotator/internal/domain"
)

// DefaultRiskFreeRate is the annual risk-free rate used for the Sharpe ratio.
const DefaultRiskFreeRate = 0.02

// MonthsPerYear annualizes monthly volatility.
const MonthsPerYear = 12

// daysPerYear converts elapsed days into fractional years.
const daysPerYear = 365.25

// volatilityEpsilon is the annualized volatility below which a return
// history counts as constant.
const volatilityEpsilon = 1e-12

// YearsBetween returns the whole days from start to end divided by 365.25.
func YearsBetween(start, end time.Time) float64 {
	days := math.Floor(end.Sub(start).Hours() / 24)
	return days / daysPerYear
}

// Evaluate computes the performance snapshot of a capital curve.
//
//	CAGR       = (final/initial)^(1/years) − 1
//	Volatility = popstdev(monthly returns) · √12
//	Sharpe     = (CAGR − riskFree) / Volatility
//
// The snapshot is all zeros while years <= 0 or there is no return history.
// CAGR is 0 when final (or initial) is not positive. Volatility below
// volatilityEpsilon is reported as 0, and Sharpe is 0 when the volatility is 0.
func Evaluate(initial, final float64, monthlyReturns []float64, years, riskFree float64) domain.PerformanceSnapshot {
	if years <= 0 || len(monthlyReturns) == 0 {
		return domain.PerformanceSnapshot{}
	}

	var cagr float64
	if final > 0 && initial > 0 {
		cagr = Finite(math.Pow(final/initial, 1/years) - 1)
	}

	vol := Finite(PopStdDev(monthlyReturns) * math.Sqrt(MonthsPerYear))
	if vol < volatilityEpsilon {
		vol = 0
	}

	var sharpe float64
	if vol > 0 {
		sharpe = Finite((cagr - riskFree) / vol)
	}

	return domain.PerformanceSnapshot{
		Sharpe:               sharpe,
		AnnualizedVolatility: vol,
		CAGR:                 cagr,
	}
}
