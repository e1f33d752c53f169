// Package store persists market data bars and completed backtest runs.
package store

import (
	"context"
	"time"

	"signalbot/internal/backtest"
	"signalbot/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// RunSummary is one row of the backtest run index.
type RunSummary struct {
	ID             int64
	CreatedAt      time.Time
	Symbol         string
	Advisor        string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalValue     float64
	TotalReturnPct float64
	SharpeRatio    float64
	MaxDrawdown    float64
	WinRate        float64
	TotalTrades    int
}

// RunStore persists completed backtest results.
type RunStore interface {
	// SaveRun records a completed backtest and returns its run ID.
	SaveRun(ctx context.Context, res *backtest.Result) (int64, error)

	// ListRuns returns summaries of all recorded runs, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)

	// GetRun reloads a full result (config, metrics, trades, value series)
	// by run ID.
	GetRun(ctx context.Context, id int64) (*backtest.Result, error)
}
