package store

import "time"

// ---------------------------------------------------------------------------
// Result record types (on-disk schema)
// ---------------------------------------------------------------------------

// MonthRecord is one sanitized row of the per-month table. Symbols holds the
// selected assets joined by commas and is empty for a cash month.
type MonthRecord struct {
	Date                 string  `parquet:"date"`
	Symbols              string  `parquet:"symbols"`
	Return               float64 `parquet:"return"`
	Capital              float64 `parquet:"capital"`
	Sharpe               float64 `parquet:"sharpe"`
	AnnualizedVolatility float64 `parquet:"annualized_volatility"`
	CAGR                 float64 `parquet:"cagr"`
}

// AssetRecord is one sanitized row of the per-asset table.
type AssetRecord struct {
	Date           string  `parquet:"date"`
	Symbol         string  `parquet:"symbol"`
	Momentum       float64 `parquet:"momentum"`
	ShortVol       float64 `parquet:"short_vol"`
	LongVol        float64 `parquet:"long_vol"`
	AvgCorrelation float64 `parquet:"avg_correlation"`
	BuyPrice       float64 `parquet:"buy_price"`
	SellPrice      float64 `parquet:"sell_price"`
	Units          float64 `parquet:"units"`
	Return         float64 `parquet:"return"`
}

// RunRecord summarizes one backtest run.
type RunRecord struct {
	ID                   string    `parquet:"id"`
	Strategy             string    `parquet:"strategy"`
	Start                string    `parquet:"start"`
	End                  string    `parquet:"end"`
	InitialCapital       float64   `parquet:"initial_capital"`
	FinalCapital         float64   `parquet:"final_capital"`
	Commission           float64   `parquet:"commission"`
	Sharpe               float64   `parquet:"sharpe"`
	AnnualizedVolatility float64   `parquet:"annualized_volatility"`
	CAGR                 float64   `parquet:"cagr"`
	CreatedAt            time.Time `parquet:"created_at,timestamp(millisecond)"`
}
