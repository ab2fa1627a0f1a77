package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"rotator/internal/domain"
)

// Compile-time interface checks.
var _ PriceStore = (*ParquetStore)(nil)
var _ ResultStore = (*ParquetStore)(nil)

// ParquetStore implements PriceStore and ResultStore using Parquet files on
// disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for monthly bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms of the month-end date
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	AdjClose  float64 `parquet:"adj_close"`
	Volume    int64   `parquet:"volume"`
}

func toBarRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Symbol:    strings.ToUpper(b.Symbol),
		Timestamp: b.Date.UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		AdjClose:  b.AdjClose,
		Volume:    b.Volume,
	}
}

func (r BarRecord) bar() domain.Bar {
	return domain.Bar{
		Symbol:   r.Symbol,
		Date:     time.UnixMilli(r.Timestamp).UTC(),
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		AdjClose: r.AdjClose,
		Volume:   r.Volume,
	}
}

// ---------------------------------------------------------------------------
// PriceStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/monthly/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		rec := toBarRecord(b)
		k := key{symbol: rec.Symbol, year: b.Date.Year()}
		groups[k] = append(groups[k], rec)
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, k.year)

		// Read existing records to merge.
		existing, err := readParquetFile[BarRecord](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading bars for %s/%d: %w", k.symbol, k.year, err)
		}
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given symbol and time
// range, in ascending date order.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		path := s.barPath(symbol, year)

		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// No file for this year.
				continue
			}
			return nil, fmt.Errorf("reading bars for %s/%d: %w", symbol, year, err)
		}

		for _, r := range records {
			b := r.bar()
			if b.Date.Before(start) || b.Date.After(end) {
				continue
			}
			bars = append(bars, b)
		}
	}
	return bars, nil
}

// ReadPrices returns the adjusted-close series for symbol within [start, end].
func (s *ParquetStore) ReadPrices(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	bars, err := s.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	if len(bars) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("prices for %s: %w", symbol, ErrNotFound)
	}
	return seriesFromBars(strings.ToUpper(symbol), bars), nil
}

// LatestDate returns the newest stored bar date for symbol.
func (s *ParquetStore) LatestDate(_ context.Context, symbol string) (time.Time, error) {
	years, err := s.years(symbol)
	if err != nil {
		return time.Time{}, err
	}
	// Newest year first; an empty file falls through to the previous year.
	for i := len(years) - 1; i >= 0; i-- {
		records, err := readParquetFile[BarRecord](s.barPath(symbol, years[i]))
		if err != nil {
			return time.Time{}, fmt.Errorf("reading bars for %s/%d: %w", symbol, years[i], err)
		}
		if len(records) == 0 {
			continue
		}
		latest := records[0].Timestamp
		for _, r := range records[1:] {
			if r.Timestamp > latest {
				latest = r.Timestamp
			}
		}
		return time.UnixMilli(latest).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("latest date for %s: %w", symbol, ErrNotFound)
}

// ListSymbols lists all symbols that have bar data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "monthly")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// years returns the ascending list of years stored for symbol.
func (s *ParquetStore) years(symbol string) ([]int, error) {
	dir := filepath.Join(s.DataDir, "monthly", strings.ToUpper(symbol))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("bars for %s: %w", symbol, ErrNotFound)
		}
		return nil, err
	}

	var years []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".parquet")
		if !ok || e.IsDir() {
			continue
		}
		y, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// ---------------------------------------------------------------------------
// ResultStore implementation
// ---------------------------------------------------------------------------

// SaveRun writes the run tables under <DataDir>/results/<run_id>/ as
// run.parquet, months.parquet and assets.parquet. Saving the same run id
// again replaces the files.
func (s *ParquetStore) SaveRun(_ context.Context, run RunRecord, months []MonthRecord, assets []AssetRecord) error {
	if run.ID == "" {
		return fmt.Errorf("saving run: empty run id")
	}
	dir := s.RunDir(run.ID)
	if err := writeParquetFile(filepath.Join(dir, "run.parquet"), []RunRecord{run}); err != nil {
		return fmt.Errorf("writing run %s: %w", run.ID, err)
	}
	if err := writeParquetFile(filepath.Join(dir, "months.parquet"), months); err != nil {
		return fmt.Errorf("writing months for run %s: %w", run.ID, err)
	}
	if err := writeParquetFile(filepath.Join(dir, "assets.parquet"), assets); err != nil {
		return fmt.Errorf("writing assets for run %s: %w", run.ID, err)
	}
	return nil
}

// LoadRun reads back the tables written by SaveRun.
func (s *ParquetStore) LoadRun(runID string) (RunRecord, []MonthRecord, []AssetRecord, error) {
	dir := s.RunDir(runID)
	runs, err := readParquetFile[RunRecord](filepath.Join(dir, "run.parquet"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RunRecord{}, nil, nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return RunRecord{}, nil, nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	if len(runs) == 0 {
		return RunRecord{}, nil, nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	months, err := readParquetFile[MonthRecord](filepath.Join(dir, "months.parquet"))
	if err != nil {
		return RunRecord{}, nil, nil, fmt.Errorf("reading months for run %s: %w", runID, err)
	}
	assets, err := readParquetFile[AssetRecord](filepath.Join(dir, "assets.parquet"))
	if err != nil {
		return RunRecord{}, nil, nil, fmt.Errorf("reading assets for run %s: %w", runID, err)
	}
	return runs[0], months, assets, nil
}

// RunDir returns the directory holding the tables of runID.
func (s *ParquetStore) RunDir(runID string) string {
	return filepath.Join(s.DataDir, "results", runID)
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/monthly/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "monthly", strings.ToUpper(symbol), strconv.Itoa(year)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// new records over existing ones. Results are sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
