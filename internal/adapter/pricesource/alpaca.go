// Package pricesource provides interchangeable domain.PriceSource adapters:
// the Alpaca market-data API for live history and an in-memory source for
// tests and development.
package pricesource

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

// AlpacaSource fetches closing prices from the Alpaca market-data API
type AlpacaSource struct {
	client *marketdata.Client
	feed   string
}

// Compile-time interface check
var _ domain.PriceSource = (*AlpacaSource)(nil)

// NewAlpacaSource creates an AlpacaSource with the given credentials. An
// empty dataURL uses the SDK default endpoint; feed selects the data feed
// subscription (e.g. "iex", "sip").
func NewAlpacaSource(apiKey, apiSecret, dataURL, feed string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		feed:   feed,
	}
}

// Fetch retrieves bars for the symbol inside [start, end] and maps each bar's
// close to a price observation. Alpaca returns bars ascending by timestamp;
// weekends and holidays simply have no bars.
func (s *AlpacaSource) Fetch(ctx context.Context, pair string, start, end time.Time, granularity domain.Granularity) (domain.PriceSeries, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	bars, err := s.client.GetBars(pair, marketdata.GetBarsRequest{
		TimeFrame: timeFrame(granularity),
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(s.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", pair, err)
	}

	series := make(domain.PriceSeries, 0, len(bars))
	for _, bar := range bars {
		series = append(series, domain.PriceObservation{
			Instant: bar.Timestamp,
			Price:   decimal.NewFromFloat(bar.Close),
		})
	}
	return series, nil
}

// timeFrame maps a granularity onto the Alpaca bar time frame
func timeFrame(granularity domain.Granularity) marketdata.TimeFrame {
	switch granularity {
	case domain.GranularityMinute:
		return marketdata.OneMin
	case domain.GranularityHour:
		return marketdata.OneHour
	default:
		return marketdata.OneDay
	}
}
