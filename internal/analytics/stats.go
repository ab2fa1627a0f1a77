// Package analytics implements the numeric building blocks of the rotation
// strategy: momentum score, trailing volatility, return correlation and the
// portfolio performance metrics. Every exported function returns finite
// values; NaN and ±Inf are folded to 0.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Finite returns x, or 0 when x is NaN or infinite.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// SimpleReturns converts prices to period-over-period returns.
// Returns[i] = Price[i+1]/Price[i] - 1, so the result is one element shorter
// than prices. A zero price yields a non-finite return, as a division would.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = prices[i]/prices[i-1] - 1
	}
	return returns
}

// Mean is the arithmetic mean, 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return Finite(stat.Mean(data, nil))
}

// SampleStdDev is the standard deviation with n-1 degrees of freedom. It is
// 0 with fewer than two observations.
func SampleStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return Finite(stat.StdDev(data, nil))
}

// PopStdDev is the population standard deviation (n degrees of freedom).
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return Finite(math.Sqrt(stat.PopVariance(data, nil)))
}
