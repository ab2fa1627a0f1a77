package builtins

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"rotator/internal/analytics"
	"rotator/internal/domain"
	"rotator/internal/store"
	"rotator/internal/universe"
)

// asOf is the last of the 14 month-ends produced by seriesBars.
var asOf = time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)

// pattern returns 13 monthly returns around drift g: nine early returns
// alternating by ±early (sign set by phase) and four late ones by ±late.
func pattern(g, early, late float64, phase float64) []float64 {
	var r []float64
	for i := 0; i < 9; i++ {
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		r = append(r, g+early*phase*sign)
	}
	for i := 0; i < 4; i++ {
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		r = append(r, g+late*sign)
	}
	return r
}

func constant(r float64) []float64 {
	out := make([]float64, 13)
	for i := range out {
		out[i] = r
	}
	return out
}

// seriesBars compounds returns from 100 into month-end bars from January
// 2020 onwards.
func seriesBars(symbol string, returns []float64) []domain.Bar {
	price := 100.0
	bars := []domain.Bar{{Symbol: symbol, Date: time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), AdjClose: price}}
	for i, r := range returns {
		price *= 1 + r
		d := time.Date(2020, time.Month(i+3), 0, 0, 0, 0, 0, time.UTC)
		bars = append(bars, domain.Bar{Symbol: symbol, Date: d, AdjClose: price})
	}
	return bars
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingReader records how often each symbol is read.
type countingReader struct {
	store.PriceReader
	reads map[string]int
}

func (c *countingReader) ReadPrices(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	c.reads[symbol]++
	return c.PriceReader.ReadPrices(ctx, symbol, start, end)
}

func newSelector(t *testing.T, params Params, series map[string][]float64, order ...string) (*MomentumRotation, *countingReader) {
	t.Helper()
	ms := store.NewMemoryStore()
	for sym, r := range series {
		if err := ms.WriteBars(context.Background(), seriesBars(sym, r)); err != nil {
			t.Fatalf("WriteBars: %v", err)
		}
	}
	cr := &countingReader{PriceReader: ms, reads: make(map[string]int)}
	sel, err := NewMomentumRotation(cr, universe.Static(order), params, quietLogger())
	if err != nil {
		t.Fatalf("NewMomentumRotation: %v", err)
	}
	return sel, cr
}

func TestSelectOnlyInBandAsset(t *testing.T) {
	sel, _ := newSelector(t, DefaultParams(), map[string][]float64{
		"X": pattern(0.02, 0.04, 0.01, 1), // momentum ≈ 0.83
		"Y": constant(0),                  // momentum 0
		"Z": constant(0.1),                // momentum ≈ 6.2
	}, "X", "Y", "Z")

	got, err := sel.Select(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if strings.Join(got.Symbols, ",") != "X" {
		t.Fatalf("Symbols = %v, want [X]", got.Symbols)
	}
	if !got.AsOf.Equal(asOf) {
		t.Errorf("AsOf = %v, want %v", got.AsOf, asOf)
	}

	m, ok := got.MetricsFor("X")
	if !ok {
		t.Fatal("no metrics for X")
	}
	if m.Momentum < 0.7 || m.Momentum > 3 {
		t.Errorf("Momentum = %v, want within [0.7, 3]", m.Momentum)
	}
	want, err := analytics.Momentum(toSeries("X", pattern(0.02, 0.04, 0.01, 1)))
	if err != nil {
		t.Fatalf("Momentum: %v", err)
	}
	if m.Momentum != want {
		t.Errorf("recorded Momentum = %v, want the scored %v", m.Momentum, want)
	}
	if m.ShortVol > m.LongVol {
		t.Errorf("ShortVol %v > LongVol %v", m.ShortVol, m.LongVol)
	}
	if m.AvgCorrelation != 0 {
		t.Errorf("AvgCorrelation without peers = %v, want 0", m.AvgCorrelation)
	}
}

func TestSelectVolatilityFilter(t *testing.T) {
	sel, _ := newSelector(t, DefaultParams(), map[string][]float64{
		"X": pattern(0.02, 0.04, 0.01, 1),
		"V": pattern(0.04, 0.005, 0.06, 1), // momentum ≈ 1.09, turbulent lately
	}, "V", "X")

	got, err := sel.Select(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if strings.Join(got.Symbols, ",") != "X" {
		t.Errorf("Symbols = %v, want [X] (V fails the volatility filter)", got.Symbols)
	}
}

func TestSelectMaxAssets(t *testing.T) {
	series := map[string][]float64{
		"A":  pattern(0.03, 0.04, 0.01, 1),   // momentum ≈ 1.37
		"B":  pattern(0.02, 0.04, 0.01, -1),  // ≈ 0.83
		"C":  pattern(0.02, 0.05, 0.01, 1),   // ≈ 0.83
		"X2": pattern(0.025, 0.04, 0.01, -1), // ≈ 1.10
	}
	for _, n := range []int{1, 2, 3} {
		params := DefaultParams()
		params.MaxAssets = n
		sel, _ := newSelector(t, params, series, "A", "B", "C", "X2")

		got, err := sel.Select(context.Background(), asOf)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(got.Symbols) != n {
			t.Errorf("max_assets=%d: Symbols = %v", n, got.Symbols)
			continue
		}
		if got.Symbols[0] != "A" {
			t.Errorf("max_assets=%d: first pick = %s, want top momentum A", n, got.Symbols[0])
		}
		if len(got.Metrics) != len(got.Symbols) {
			t.Errorf("max_assets=%d: %d metrics for %d symbols", n, len(got.Metrics), len(got.Symbols))
		}
		seen := map[string]bool{}
		for _, s := range got.Symbols {
			if seen[s] {
				t.Errorf("max_assets=%d: duplicate pick %s", n, s)
			}
			seen[s] = true
		}
	}
}

func TestSelectNoCandidates(t *testing.T) {
	sel, _ := newSelector(t, DefaultParams(), map[string][]float64{
		"Y": constant(0),
	}, "Y", "MISSING")

	got, err := sel.Select(context.Background(), asOf)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !got.Empty() || len(got.Metrics) != 0 {
		t.Errorf("Select = %+v, want empty selection", got)
	}
}

func TestSelectInsufficientHistory(t *testing.T) {
	sel, _ := newSelector(t, DefaultParams(), map[string][]float64{
		"X": pattern(0.02, 0.04, 0.01, 1),
	}, "X")

	// One year earlier only a few months of X exist.
	got, err := sel.Select(context.Background(), time.Date(2020, 5, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !got.Empty() {
		t.Errorf("Symbols = %v, want none", got.Symbols)
	}
}

func TestSelectReadsEachAssetOnce(t *testing.T) {
	sel, cr := newSelector(t, DefaultParams(), map[string][]float64{
		"X": pattern(0.02, 0.04, 0.01, 1),
		"Y": constant(0),
	}, "X", "Y", "MISSING")

	if _, err := sel.Select(context.Background(), asOf); err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, sym := range []string{"X", "Y", "MISSING"} {
		if cr.reads[sym] != 1 {
			t.Errorf("%s read %d times, want 1", sym, cr.reads[sym])
		}
	}
}

func TestGreedyPickPrefersLowCorrelation(t *testing.T) {
	a := pattern(0.02, 0.04, 0.01, 1)
	series := map[string]domain.PriceSeries{
		"A": toSeries("A", a),
		"B": toSeries("B", pattern(0.02, 0.04, 0.01, -1)),
		"C": toSeries("C", a),
	}
	matrix := analytics.BuildCorrelation(series, []string{"A", "B", "C"})
	ab, _ := matrix.Get("A", "B")
	ac, _ := matrix.Get("A", "C")
	if !(ab < ac) {
		t.Fatalf("fixture broken: corr(A,B)=%v, corr(A,C)=%v", ab, ac)
	}

	pool := []candidate{cand("A", 2), cand("B", 1), cand("C", 1)}
	got := greedyPick(pool, matrix, 2)
	if strings.Join(got, ",") != "A,B" {
		t.Errorf("greedyPick = %v, want [A B]", got)
	}

	// Order among equally ranked candidates does not change the pick.
	pool[1], pool[2] = pool[2], pool[1]
	got = greedyPick(pool, matrix, 2)
	if strings.Join(got, ",") != "A,B" {
		t.Errorf("greedyPick (swapped) = %v, want [A B]", got)
	}
}

func TestGreedyPickStopsWithoutCorrelationData(t *testing.T) {
	series := map[string]domain.PriceSeries{
		"A": toSeries("A", pattern(0.02, 0.04, 0.01, 1)),
		"F": toSeries("F", constant(0)), // zero variance: no defined correlation
	}
	matrix := analytics.BuildCorrelation(series, []string{"A", "F"})

	pool := []candidate{cand("A", 2), cand("F", 1)}
	if got := greedyPick(pool, matrix, 3); strings.Join(got, ",") != "A" {
		t.Errorf("greedyPick = %v, want [A]", got)
	}
	if got := greedyPick(pool, nil, 3); strings.Join(got, ",") != "A" {
		t.Errorf("greedyPick without matrix = %v, want [A]", got)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() = %v", err)
	}
	bad := DefaultParams()
	bad.MaxAssets = 0
	if _, err := NewMomentumRotation(store.NewMemoryStore(), universe.Static{"SPY"}, bad, nil); err == nil {
		t.Error("NewMomentumRotation with max assets 0 should fail")
	}
}

func toSeries(symbol string, returns []float64) domain.PriceSeries {
	s := domain.PriceSeries{Symbol: symbol}
	for _, b := range seriesBars(symbol, returns) {
		s.Points = append(s.Points, domain.PricePoint{Date: b.Date, AdjClose: b.AdjClose})
	}
	return s
}

// cand builds a pool entry with the given momentum score.
func cand(symbol string, score float64) candidate {
	return candidate{
		score: domain.MomentumRecord{Symbol: symbol, Score: score},
		vol:   domain.VolatilityRecord{Symbol: symbol},
	}
}
