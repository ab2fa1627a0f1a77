// Package domain holds the value types shared by the rotator packages:
// monthly price series, selection records, fills and the backtest tables.
package domain

import (
	"errors"
	"time"
)

// ErrInsufficientData is returned when a series is too short for the
// requested lookback window. Callers exclude the asset for that evaluation.
var ErrInsufficientData = errors.New("insufficient data")

// DateLayout is the calendar date format used in storage and reports.
const DateLayout = "2006-01-02"

// ---------------------------------------------------------------------------
// Prices
// ---------------------------------------------------------------------------

// Bar is one stored month-end row for an asset. AdjClose is the dividend
// and split adjusted close that every calculation uses.
type Bar struct {
	Symbol   string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// PricePoint is a single (date, adjusted close) observation.
type PricePoint struct {
	Date     time.Time
	AdjClose float64
}

// PriceSeries is an ascending, duplicate-free sequence of observations for
// one asset.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns the adjusted closes in date order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.AdjClose
	}
	return out
}

// Between returns the observations with start <= date <= end. The returned
// series shares no memory with s.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	out := PriceSeries{Symbol: s.Symbol}
	for _, p := range s.Points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// MomentumRecord is the momentum score of one asset on an evaluation date.
type MomentumRecord struct {
	Symbol string
	Score  float64
}

// VolatilityRecord holds the short and long trailing volatilities of an
// asset on an evaluation date.
type VolatilityRecord struct {
	Symbol string
	Short  float64
	Long   float64
}

// AssetMetrics is the snapshot reported for each selected asset.
type AssetMetrics struct {
	Symbol         string
	Momentum       float64
	ShortVol       float64
	LongVol        float64
	AvgCorrelation float64
}

// Selection is the set of assets chosen for one evaluation date, in pick
// order. An empty Selection means the portfolio stays in cash.
type Selection struct {
	AsOf    time.Time
	Symbols []string
	Metrics []AssetMetrics
}

// Empty reports whether no asset was selected.
func (s Selection) Empty() bool { return len(s.Symbols) == 0 }

// MetricsFor returns the metrics snapshot recorded for symbol.
func (s Selection) MetricsFor(symbol string) (AssetMetrics, bool) {
	for _, m := range s.Metrics {
		if m.Symbol == symbol {
			return m, true
		}
	}
	return AssetMetrics{}, false
}

// ---------------------------------------------------------------------------
// Simulation
// ---------------------------------------------------------------------------

// Fill is a simulated buy at the start of a holding period and sell at its
// end.
type Fill struct {
	Symbol    string
	BuyPrice  float64
	SellPrice float64
	Units     float64
	Return    float64
}

// PeriodResult is the realized outcome of holding a selection for one period.
type PeriodResult struct {
	Start  time.Time
	End    time.Time
	Return float64 // net of commission
	Fills  []Fill
}

// FillFor returns the fill recorded for symbol.
func (r PeriodResult) FillFor(symbol string) (Fill, bool) {
	for _, f := range r.Fills {
		if f.Symbol == symbol {
			return f, true
		}
	}
	return Fill{}, false
}

// PortfolioState is the running capital and monthly return history owned by
// the backtest driver.
type PortfolioState struct {
	Date    time.Time
	Capital float64
	Returns []float64
}

// Apply compounds capital by r and appends r to the return history.
func (p *PortfolioState) Apply(date time.Time, r float64) {
	p.Date = date
	p.Capital *= 1 + r
	p.Returns = append(p.Returns, r)
}

// PerformanceSnapshot holds the risk/return metrics as of one month.
type PerformanceSnapshot struct {
	Sharpe               float64
	AnnualizedVolatility float64
	CAGR                 float64
}

// ---------------------------------------------------------------------------
// Output tables
// ---------------------------------------------------------------------------

// MonthRow is one row of the per-month table.
type MonthRow struct {
	Date    time.Time
	Symbols []string
	Return  float64
	Capital float64
	PerformanceSnapshot
}

// AssetRow is one row of the per-asset-per-month table.
type AssetRow struct {
	Date           time.Time
	Symbol         string
	Momentum       float64
	ShortVol       float64
	LongVol        float64
	AvgCorrelation float64
	BuyPrice       float64
	SellPrice      float64
	Units          float64
	Return         float64
}
