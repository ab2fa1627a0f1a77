package gather

import (
	"math"
	"sort"
	"strings"
	"time"

	"rotator/internal/domain"
	"rotator/internal/util"
)

// pricePrecision is the number of decimals kept for stored prices.
const pricePrecision = 3

func roundPrice(v float64) float64 {
	p := math.Pow(10, pricePrecision)
	return math.Round(v*p) / p
}

// MonthlyBars resamples daily bars to calendar month-ends. Each month takes
// the last raw daily bar for open/high/low/close/volume and the last
// adjusted bar's close as AdjClose; the row is dated on the calendar
// month-end. Months present in only one input are dropped, as are rows
// after until. Prices are rounded to three decimals.
func MonthlyBars(symbol string, raw, adjusted []DailyBar, until time.Time) []domain.Bar {
	lastRaw := lastPerMonth(raw)
	lastAdj := lastPerMonth(adjusted)

	var out []domain.Bar
	for month, r := range lastRaw {
		a, ok := lastAdj[month]
		if !ok || month.After(until) {
			continue
		}
		out = append(out, domain.Bar{
			Symbol:   strings.ToUpper(symbol),
			Date:     month,
			Open:     roundPrice(r.Open),
			High:     roundPrice(r.High),
			Low:      roundPrice(r.Low),
			Close:    roundPrice(r.Close),
			AdjClose: roundPrice(a.Close),
			Volume:   r.Volume,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// lastPerMonth keys the latest bar of each month by the month-end date.
func lastPerMonth(bars []DailyBar) map[time.Time]DailyBar {
	out := make(map[time.Time]DailyBar)
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		m := util.MonthEnd(b.Date)
		if cur, ok := out[m]; !ok || b.Date.After(cur.Date) {
			out[m] = b
		}
	}
	return out
}
