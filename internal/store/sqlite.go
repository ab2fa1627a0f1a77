package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rotator/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ PriceStore = (*SQLiteStore)(nil)
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements PriceStore and ResultStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS monthly_prices (
	symbol    TEXT    NOT NULL,
	date      TEXT    NOT NULL,
	open      REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	close     REAL    NOT NULL,
	adj_close REAL    NOT NULL,
	volume    INTEGER NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	id                    TEXT PRIMARY KEY,
	strategy              TEXT NOT NULL,
	start_date            TEXT NOT NULL,
	end_date              TEXT NOT NULL,
	initial_capital       REAL NOT NULL,
	final_capital         REAL NOT NULL,
	commission            REAL NOT NULL,
	sharpe                REAL NOT NULL,
	annualized_volatility REAL NOT NULL,
	cagr                  REAL NOT NULL,
	created_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_months (
	run_id                TEXT NOT NULL,
	date                  TEXT NOT NULL,
	symbols               TEXT NOT NULL,
	period_return         REAL NOT NULL,
	capital               REAL NOT NULL,
	sharpe                REAL NOT NULL,
	annualized_volatility REAL NOT NULL,
	cagr                  REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS backtest_assets (
	run_id          TEXT NOT NULL,
	date            TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	momentum        REAL NOT NULL,
	short_vol       REAL NOT NULL,
	long_vol        REAL NOT NULL,
	avg_correlation REAL NOT NULL,
	buy_price       REAL NOT NULL,
	sell_price      REAL NOT NULL,
	units           REAL NOT NULL,
	asset_return    REAL NOT NULL,
	PRIMARY KEY (run_id, date, symbol)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", dbPath, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// PriceStore implementation
// ---------------------------------------------------------------------------

// WriteBars upserts bars keyed by (symbol, date) in one transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO monthly_prices
		(symbol, date, open, high, low, close, adj_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, strings.ToUpper(b.Symbol), b.Date.Format(domain.DateLayout),
			b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume); err != nil {
			return fmt.Errorf("writing bar %s %s: %w", b.Symbol, b.Date.Format(domain.DateLayout), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for symbol within [start, end] in ascending date order.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, date, open, high, low, close, adj_close, volume
		FROM monthly_prices WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date`,
		strings.ToUpper(symbol), start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b    domain.Bar
			date string
		)
		if err := rows.Scan(&b.Symbol, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, err
		}
		if b.Date, err = time.Parse(domain.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parsing date %q for %s: %w", date, b.Symbol, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadPrices returns the adjusted-close series for symbol within [start, end].
func (s *SQLiteStore) ReadPrices(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	bars, err := s.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("reading prices for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("prices for %s: %w", symbol, ErrNotFound)
	}
	return seriesFromBars(strings.ToUpper(symbol), bars), nil
}

// LatestDate returns the newest stored bar date for symbol.
func (s *SQLiteStore) LatestDate(ctx context.Context, symbol string) (time.Time, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM monthly_prices WHERE symbol = ?`,
		strings.ToUpper(symbol)).Scan(&date)
	if err != nil {
		return time.Time{}, err
	}
	if !date.Valid {
		return time.Time{}, fmt.Errorf("latest date for %s: %w", symbol, ErrNotFound)
	}
	return time.Parse(domain.DateLayout, date.String)
}

// ListSymbols returns the distinct stored symbols in ascending order.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM monthly_prices ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// ---------------------------------------------------------------------------
// ResultStore implementation
// ---------------------------------------------------------------------------

// SaveRun stores a run with its tables in one transaction, replacing any
// rows previously saved under the same run id.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord, months []MonthRecord, assets []AssetRecord) error {
	if run.ID == "" {
		return fmt.Errorf("saving run: empty run id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"backtest_months", "backtest_assets"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", run.ID); err != nil {
			return fmt.Errorf("clearing %s for run %s: %w", table, run.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO backtest_runs
		(id, strategy, start_date, end_date, initial_capital, final_capital, commission,
		 sharpe, annualized_volatility, cagr, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Start, run.End, run.InitialCapital, run.FinalCapital, run.Commission,
		run.Sharpe, run.AnnualizedVolatility, run.CAGR, run.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("writing run %s: %w", run.ID, err)
	}

	for _, m := range months {
		if _, err := tx.ExecContext(ctx, `INSERT INTO backtest_months
			(run_id, date, symbols, period_return, capital, sharpe, annualized_volatility, cagr)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, m.Date, m.Symbols, m.Return, m.Capital, m.Sharpe, m.AnnualizedVolatility, m.CAGR); err != nil {
			return fmt.Errorf("writing month %s for run %s: %w", m.Date, run.ID, err)
		}
	}

	for _, a := range assets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO backtest_assets
			(run_id, date, symbol, momentum, short_vol, long_vol, avg_correlation,
			 buy_price, sell_price, units, asset_return)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, a.Date, a.Symbol, a.Momentum, a.ShortVol, a.LongVol, a.AvgCorrelation,
			a.BuyPrice, a.SellPrice, a.Units, a.Return); err != nil {
			return fmt.Errorf("writing asset %s %s for run %s: %w", a.Symbol, a.Date, run.ID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns saved runs, newest first, up to limit (all when limit <= 0).
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, strategy, start_date, end_date, initial_capital, final_capital, commission,
		sharpe, annualized_volatility, cagr, created_at FROM backtest_runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r       RunRecord
			created string
		)
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Start, &r.End, &r.InitialCapital, &r.FinalCapital,
			&r.Commission, &r.Sharpe, &r.AnnualizedVolatility, &r.CAGR, &created); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parsing created_at of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// MonthsForRun returns the per-month rows of a run in date order.
func (s *SQLiteStore) MonthsForRun(ctx context.Context, runID string) ([]MonthRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM backtest_runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date, symbols, period_return, capital, sharpe,
		annualized_volatility, cagr FROM backtest_months WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []MonthRecord
	for rows.Next() {
		var m MonthRecord
		if err := rows.Scan(&m.Date, &m.Symbols, &m.Return, &m.Capital, &m.Sharpe,
			&m.AnnualizedVolatility, &m.CAGR); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}
