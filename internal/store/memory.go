package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rotator/internal/domain"
)

// Compile-time interface checks.
var _ PriceStore = (*MemoryStore)(nil)
var _ ResultStore = (*MemoryStore)(nil)

// MemoryStore is an in-process PriceStore and ResultStore. It is safe for
// concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	bars map[string][]domain.Bar // ascending by date
	runs map[string]savedRun
}

type savedRun struct {
	run    RunRecord
	months []MonthRecord
	assets []AssetRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bars: make(map[string][]domain.Bar),
		runs: make(map[string]savedRun),
	}
}

// WriteBars merges bars into the store, replacing rows with the same
// (symbol, date).
func (m *MemoryStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[string]bool)
	for _, b := range bars {
		sym := strings.ToUpper(b.Symbol)
		b.Symbol = sym
		existing := m.bars[sym]
		replaced := false
		for i := range existing {
			if existing[i].Date.Equal(b.Date) {
				existing[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			m.bars[sym] = append(existing, b)
		}
		touched[sym] = true
	}
	for sym := range touched {
		rows := m.bars[sym]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	}
	return nil
}

// ReadPrices returns the adjusted-close series for symbol within [start, end].
func (m *MemoryStore) ReadPrices(_ context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sym := strings.ToUpper(symbol)
	var in []domain.Bar
	for _, b := range m.bars[sym] {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		in = append(in, b)
	}
	if len(in) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("prices for %s: %w", symbol, ErrNotFound)
	}
	return seriesFromBars(sym, in), nil
}

// LatestDate returns the newest stored bar date for symbol.
func (m *MemoryStore) LatestDate(_ context.Context, symbol string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.bars[strings.ToUpper(symbol)]
	if len(rows) == 0 {
		return time.Time{}, fmt.Errorf("latest date for %s: %w", symbol, ErrNotFound)
	}
	return rows[len(rows)-1].Date, nil
}

// ListSymbols returns the stored symbols in ascending order.
func (m *MemoryStore) ListSymbols(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]string, 0, len(m.bars))
	for sym, rows := range m.bars {
		if len(rows) > 0 {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// SaveRun keeps copies of the run tables, replacing a run with the same id.
func (m *MemoryStore) SaveRun(_ context.Context, run RunRecord, months []MonthRecord, assets []AssetRecord) error {
	if run.ID == "" {
		return fmt.Errorf("saving run: empty run id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = savedRun{
		run:    run,
		months: append([]MonthRecord(nil), months...),
		assets: append([]AssetRecord(nil), assets...),
	}
	return nil
}

// Run returns a saved run and its tables.
func (m *MemoryStore) Run(id string) (RunRecord, []MonthRecord, []AssetRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	return r.run, r.months, r.assets, ok
}
