package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"rotator/internal/store"
)

// File names used by WriteDir.
const (
	MonthsFile = "months.csv"
	AssetsFile = "assets.csv"
)

var monthsHeader = []string{
	"date",
	"symbols",
	"return",
	"capital",
	"sharpe",
	"annualized_volatility",
	"cagr",
}

var assetsHeader = []string{
	"date",
	"symbol",
	"momentum",
	"short_vol",
	"long_vol",
	"avg_correlation",
	"buy_price",
	"sell_price",
	"units",
	"return",
}

// WriteMonthsCSV writes the per-month table with a header row.
func WriteMonthsCSV(out io.Writer, months []store.MonthRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(monthsHeader); err != nil {
		return err
	}
	for _, m := range months {
		row := []string{
			m.Date,
			m.Symbols,
			fmtFloat(m.Return),
			fmtFloat(m.Capital),
			fmtFloat(m.Sharpe),
			fmtFloat(m.AnnualizedVolatility),
			fmtFloat(m.CAGR),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteAssetsCSV writes the per-asset-per-month table with a header row.
func WriteAssetsCSV(out io.Writer, assets []store.AssetRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(assetsHeader); err != nil {
		return err
	}
	for _, a := range assets {
		row := []string{
			a.Date,
			a.Symbol,
			fmtFloat(a.Momentum),
			fmtFloat(a.ShortVol),
			fmtFloat(a.LongVol),
			fmtFloat(a.AvgCorrelation),
			fmtFloat(a.BuyPrice),
			fmtFloat(a.SellPrice),
			fmtFloat(a.Units),
			fmtFloat(a.Return),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteDir writes MonthsFile and AssetsFile into dir, creating it if needed.
// It returns the paths written.
func WriteDir(dir string, months []store.MonthRecord, assets []store.AssetRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	monthsPath := filepath.Join(dir, MonthsFile)
	if err := writeFile(monthsPath, func(w io.Writer) error { return WriteMonthsCSV(w, months) }); err != nil {
		return nil, err
	}
	assetsPath := filepath.Join(dir, AssetsFile)
	if err := writeFile(assetsPath, func(w io.Writer) error { return WriteAssetsCSV(w, assets) }); err != nil {
		return nil, err
	}
	return []string{monthsPath, assetsPath}, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// fmtFloat uses the shortest representation that round-trips.
func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
