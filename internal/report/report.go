// Package report turns backtest tables into their exported form: sanitized
// records for the result stores and CSV files for humans and spreadsheets.
package report

import (
	"strings"

	"rotator/internal/analytics"
	"rotator/internal/domain"
	"rotator/internal/store"
	"rotator/internal/strategy"
)

// SymbolSeparator joins the selected symbols of a month.
const SymbolSeparator = ","

// Sanitize converts the result tables into store records. Every float is
// passed through analytics.Finite, dates use domain.DateLayout and the
// symbols of a month are joined with SymbolSeparator (empty for cash).
func Sanitize(res *strategy.BacktestResult) ([]store.MonthRecord, []store.AssetRecord) {
	if res == nil {
		return nil, nil
	}

	months := make([]store.MonthRecord, 0, len(res.Months))
	for _, m := range res.Months {
		months = append(months, store.MonthRecord{
			Date:                 m.Date.Format(domain.DateLayout),
			Symbols:              strings.Join(m.Symbols, SymbolSeparator),
			Return:               analytics.Finite(m.Return),
			Capital:              analytics.Finite(m.Capital),
			Sharpe:               analytics.Finite(m.Sharpe),
			AnnualizedVolatility: analytics.Finite(m.AnnualizedVolatility),
			CAGR:                 analytics.Finite(m.CAGR),
		})
	}

	assets := make([]store.AssetRecord, 0, len(res.Assets))
	for _, a := range res.Assets {
		assets = append(assets, store.AssetRecord{
			Date:           a.Date.Format(domain.DateLayout),
			Symbol:         a.Symbol,
			Momentum:       analytics.Finite(a.Momentum),
			ShortVol:       analytics.Finite(a.ShortVol),
			LongVol:        analytics.Finite(a.LongVol),
			AvgCorrelation: analytics.Finite(a.AvgCorrelation),
			BuyPrice:       analytics.Finite(a.BuyPrice),
			SellPrice:      analytics.Finite(a.SellPrice),
			Units:          analytics.Finite(a.Units),
			Return:         analytics.Finite(a.Return),
		})
	}
	return months, assets
}

// RunRecord builds the summary row of a run.
func RunRecord(id string, res *strategy.BacktestResult, commission float64) store.RunRecord {
	return store.RunRecord{
		ID:                   id,
		Strategy:             res.Strategy,
		Start:                res.Start.Format(domain.DateLayout),
		End:                  res.End.Format(domain.DateLayout),
		InitialCapital:       analytics.Finite(res.InitialCapital),
		FinalCapital:         analytics.Finite(res.FinalCapital),
		Commission:           commission,
		Sharpe:               analytics.Finite(res.Performance.Sharpe),
		AnnualizedVolatility: analytics.Finite(res.Performance.AnnualizedVolatility),
		CAGR:                 analytics.Finite(res.Performance.CAGR),
	}
}
