package gather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// DailyBar is one daily OHLCV bar as delivered by a data source.
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// BarSource fetches daily bars for one symbol. With adjusted set, prices
// are split and dividend adjusted.
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, r DateRange, adjusted bool) ([]DailyBar, error)
}

// Compile-time interface check.
var _ BarSource = (*AlpacaSource)(nil)

// AlpacaSource reads daily bars from the Alpaca market-data API.
type AlpacaSource struct {
	client *marketdata.Client
	feed   string
}

// NewAlpacaSource creates an AlpacaSource with the given credentials. An
// empty dataURL uses the SDK default endpoint; an empty feed uses "iex".
func NewAlpacaSource(apiKey, apiSecret, dataURL, feed string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		feed:   feed,
	}
}

// DailyBars fetches the daily bars of symbol in r. Alpaca treats End as
// exclusive, so the request runs to the start of the following day.
func (s *AlpacaSource) DailyBars(ctx context.Context, symbol string, r DateRange, adjusted bool) ([]DailyBar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	adj := marketdata.Raw
	if adjusted {
		adj = marketdata.All
	}
	bars, err := s.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: adj,
		Start:      r.Start,
		End:        r.End.AddDate(0, 0, 1),
		Feed:       s.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	out := make([]DailyBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, DailyBar{
			Date:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return out, nil
}
