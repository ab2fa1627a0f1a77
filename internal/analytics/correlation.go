package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"rotator/internal/domain"
)

// CorrelationMinPoints is the minimum series length for an asset to take
// part in the correlation matrix.
const CorrelationMinPoints = 12

// CorrelationMatrix holds pairwise Pearson correlations of monthly returns.
// Pairs without enough overlapping history are absent rather than zero.
type CorrelationMatrix struct {
	symbols []string
	values  map[string]map[string]float64
}

// Symbols returns the assets that contributed a return series, in the order
// they were supplied.
func (m *CorrelationMatrix) Symbols() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.symbols...)
}

// Get returns corr(a, b) and whether it is defined.
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	row, ok := m.values[a]
	if !ok {
		return 0, false
	}
	v, ok := row[b]
	return v, ok
}

// MeanTo returns the mean correlation of candidate to the given peers over
// the defined entries, and false when no entry is defined.
func (m *CorrelationMatrix) MeanTo(candidate string, peers []string) (float64, bool) {
	var vals []float64
	for _, p := range peers {
		if v, ok := m.Get(candidate, p); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return Mean(vals), true
}

// BuildCorrelation computes the correlation matrix of the eligible assets
// found in series. Each asset with at least CorrelationMinPoints
// observations contributes its simple returns keyed by date; each pair is
// correlated over the dates both have. It returns nil when no asset
// qualifies.
func BuildCorrelation(series map[string]domain.PriceSeries, eligible []string) *CorrelationMatrix {
	type datedReturns map[int64]float64

	var symbols []string
	returns := make(map[string]datedReturns)
	for _, sym := range eligible {
		s, ok := series[sym]
		if !ok || s.Len() < CorrelationMinPoints {
			continue
		}
		if _, dup := returns[sym]; dup {
			continue
		}
		r := make(datedReturns, s.Len()-1)
		for i := 1; i < s.Len(); i++ {
			v := s.Points[i].AdjClose/s.Points[i-1].AdjClose - 1
			if math.IsNaN(v) {
				continue
			}
			r[s.Points[i].Date.Unix()] = v
		}
		returns[sym] = r
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return nil
	}

	m := &CorrelationMatrix{
		symbols: symbols,
		values:  make(map[string]map[string]float64, len(symbols)),
	}
	for _, sym := range symbols {
		m.values[sym] = make(map[string]float64, len(symbols))
	}

	for i, a := range symbols {
		for _, b := range symbols[i:] {
			x, y := overlap(returns[a], returns[b], series[a])
			if len(x) < 2 {
				continue
			}
			c := stat.Correlation(x, y, nil)
			if math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			m.values[a][b] = c
			m.values[b][a] = c
		}
	}
	return m
}

// overlap returns the paired returns of a and b on the dates both define,
// ordered by the dates of ref so the result is deterministic.
func overlap(a, b map[int64]float64, ref domain.PriceSeries) ([]float64, []float64) {
	var x, y []float64
	for _, p := range ref.Points {
		key := p.Date.Unix()
		va, okA := a[key]
		vb, okB := b[key]
		if !okA || !okB {
			continue
		}
		if math.IsInf(va, 0) || math.IsInf(vb, 0) {
			continue
		}
		x = append(x, va)
		y = append(y, vb)
	}
	return x, y
}
