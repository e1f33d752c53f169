// Package fetch downloads daily OHLCV bars from the Alpaca market-data API
// into the local bar store, where the backtest engine reads them.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"signalbot/internal/domain"
	"signalbot/internal/store"
	"signalbot/internal/util"
)

// BarFetcher fetches daily bars for individual symbols and persists them.
type BarFetcher struct {
	client  *marketdata.Client
	store   store.BarStore
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewBarFetcher creates a BarFetcher with the given Alpaca credentials and
// target store. rateLimitPerMin paces the API calls; values <= 0 default
// to 200.
func NewBarFetcher(apiKey, apiSecret, dataURL string, s store.BarStore, rateLimitPerMin int, log *slog.Logger) *BarFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}
	if log == nil {
		log = slog.Default()
	}

	return &BarFetcher{
		client:  marketdata.NewClient(opts),
		store:   s,
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     log.With("component", "fetch"),
	}
}

// Fetch downloads daily bars for symbol within [start, end] and writes them
// to the bar store. It returns the number of bars fetched.
func (f *BarFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	symbol = strings.ToUpper(symbol)

	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		alpacaBars, err = f.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      "sip",
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	if len(alpacaBars) == 0 {
		f.log.Warn("no bars returned", "symbol", symbol,
			"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
		return 0, nil
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}

	if err := f.store.WriteBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("writing bars for %s: %w", symbol, err)
	}

	f.log.Info("bars fetched", "symbol", symbol, "count", len(bars))
	return len(bars), nil
}
