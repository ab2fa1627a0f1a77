// Package store defines storage interfaces for persisting and retrieving
// monthly price bars and backtest result tables.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rotator/internal/domain"
)

// ErrNotFound is returned when a store holds no data for the request.
var ErrNotFound = errors.New("not found")

// PriceReader returns the adjusted-close series of an asset.
type PriceReader interface {
	// ReadPrices returns observations with start <= date <= end in ascending
	// date order, or ErrNotFound when the asset has none in that range.
	ReadPrices(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error)
}

// BarWriter persists monthly bars.
type BarWriter interface {
	// WriteBars persists a batch of bars. Rows with an existing (symbol, date)
	// replace the stored row.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// LatestDate returns the date of the newest stored bar for symbol, or
	// ErrNotFound when nothing is stored.
	LatestDate(ctx context.Context, symbol string) (time.Time, error)
}

// SymbolLister enumerates the assets present in a store.
type SymbolLister interface {
	// ListSymbols returns all distinct symbols in ascending order.
	ListSymbols(ctx context.Context) ([]string, error)
}

// PriceStore is the full monthly price backend.
type PriceStore interface {
	PriceReader
	BarWriter
	SymbolLister
}

// ResultStore persists the tables of a backtest run.
type ResultStore interface {
	// SaveRun stores the run summary with its per-month and per-asset rows.
	SaveRun(ctx context.Context, run RunRecord, months []MonthRecord, assets []AssetRecord) error
}

// seriesFromBars converts ascending bars into a price series.
func seriesFromBars(symbol string, bars []domain.Bar) domain.PriceSeries {
	s := domain.PriceSeries{Symbol: symbol, Points: make([]domain.PricePoint, 0, len(bars))}
	for _, b := range bars {
		s.Points = append(s.Points, domain.PricePoint{Date: b.Date, AdjClose: b.AdjClose})
	}
	return s
}

// Open returns the price store for backend ("parquet" or "sqlite") and a
// function that releases it.
func Open(backend, dataDir, sqlitePath string) (PriceStore, func() error, error) {
	switch backend {
	case "parquet":
		return NewParquetStore(dataDir), func() error { return nil }, nil
	case "sqlite":
		ss, err := NewSQLiteStore(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return ss, ss.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
