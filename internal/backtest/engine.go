package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"signalbot/internal/advisor"
	"signalbot/internal/domain"
)

// ErrNoPriceData is returned when the bar store has no bars for the
// configured symbol and date range.
var ErrNoPriceData = errors.New("no price data for symbol")

// maxReasonLen bounds the advisory reason text stored on a trade.
const maxReasonLen = 200

// BarSource is the slice of the bar store the engine reads from.
type BarSource interface {
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)
}

// Engine drives the day-by-day simulation: for each bar in date order it
// requests an advisory signal, applies the execution policy against the
// ledger, and records the daily portfolio value. The engine exclusively owns
// its ledger and histories for the duration of a run; independent runs may
// execute concurrently since they share nothing.
type Engine struct {
	cfg     Config
	bars    BarSource
	advisor advisor.Advisor
	policy  Policy
	log     *slog.Logger
}

// New creates an Engine for one run. When policy is nil the default
// full-liquidation policy built from cfg is used.
func New(cfg Config, bars BarSource, adv advisor.Advisor, policy Policy, log *slog.Logger) *Engine {
	if policy == nil {
		policy = NewFullLiquidationPolicy(cfg.PositionSize, cfg.CommissionPct)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		bars:    bars,
		advisor: adv,
		policy:  policy,
		log:     log.With("component", "backtest", "symbol", cfg.Symbol),
	}
}

// priceIndex resolves close prices from the loaded bar series by calendar
// day. It backs the ledger's mark-to-market valuation.
type priceIndex struct {
	symbol string
	closes map[string]float64 // date (2006-01-02) -> close
}

func newPriceIndex(symbol string, bars []domain.Bar) *priceIndex {
	closes := make(map[string]float64, len(bars))
	for _, b := range bars {
		closes[b.Timestamp.Format(DateFormat)] = b.Close
	}
	return &priceIndex{symbol: symbol, closes: closes}
}

// CloseOn implements PriceLookup.
func (p *priceIndex) CloseOn(symbol string, date time.Time) (float64, bool) {
	if symbol != p.symbol {
		return 0, false
	}
	c, ok := p.closes[date.Format(DateFormat)]
	return c, ok
}

// Run executes the backtest and returns its immutable result.
//
// Days are processed strictly in ascending date order, and the advisor is
// always called with the day being simulated so it sees only information
// available as of that day. A failed advisory call skips that day's trading
// decision but the portfolio value is still recorded from the last mark.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.cfg.Validate(time.Now()); err != nil {
		return nil, fmt.Errorf("backtest config: %w", err)
	}

	bars, err := e.bars.ReadBars(ctx, e.cfg.Symbol, e.cfg.market(), e.cfg.Start, e.cfg.End)
	if err != nil {
		return nil, fmt.Errorf("loading price data for %s: %w", e.cfg.Symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNoPriceData, e.cfg.Symbol,
			e.cfg.Start.Format(DateFormat), e.cfg.End.Format(DateFormat))
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	e.log.Info("starting backtest",
		"start", e.cfg.Start.Format(DateFormat),
		"end", e.cfg.End.Format(DateFormat),
		"days", len(bars),
		"initialCapital", e.cfg.InitialCapital,
		"advisor", e.advisor.Name(),
		"policy", e.policy.Name())

	prices := newPriceIndex(e.cfg.Symbol, bars)
	ledger := NewLedger(e.cfg.InitialCapital, e.cfg.MinConfidence, prices, e.log)

	var trades []Trade
	values := make([]ValuePoint, 0, len(bars))

	for i, bar := range bars {
		date := bar.Timestamp
		e.log.Debug("processing day",
			"day", i+1, "total", len(bars),
			"date", date.Format(DateFormat), "close", bar.Close)

		signal, err := e.advisor.Analyze(ctx, e.cfg.Symbol, date)
		if err != nil {
			// One bad day must not abort the simulation.
			e.log.Error("advisory failure, skipping day",
				"date", date.Format(DateFormat), "error", err)
		} else {
			sig := *signal
			sig.Symbol = e.cfg.Symbol
			if len(sig.Reasons) > maxReasonLen {
				sig.Reasons = sig.Reasons[:maxReasonLen]
			}
			e.log.Info("signal",
				"date", date.Format(DateFormat),
				"recommendation", sig.Recommendation, "confidence", sig.Confidence)

			if trade := e.policy.Apply(ledger, &sig, date, bar.Close); trade != nil {
				trades = append(trades, *trade)
			}
		}

		// Record portfolio value whether or not a trade occurred.
		value := ledger.Mark(date)
		values = append(values, ValuePoint{Date: date, Value: value})
	}

	res := calculateMetrics(trades, values, e.cfg.InitialCapital)
	res.Config = e.cfg
	res.Advisor = e.advisor.Name()

	e.log.Info("backtest completed",
		"finalValue", res.FinalValue,
		"totalReturnPct", res.TotalReturnPct,
		"sharpe", res.SharpeRatio,
		"maxDrawdown", res.MaxDrawdown,
		"winRate", res.WinRate,
		"trades", res.TotalTrades)

	return &res, nil
}
