// Package backtest simulates the advisory trading strategy over historical
// daily bars and computes performance metrics for the run.
package backtest

import (
	"log/slog"
	"time"

	"signalbot/internal/domain"
)

// PriceLookup resolves the closing price of a symbol on a given day. The
// second return value reports whether a bar exists for that day.
type PriceLookup interface {
	CloseOn(symbol string, date time.Time) (float64, bool)
}

// Position is a held quantity of a single instrument with a weighted-average
// cost basis. CurrentPrice is the last mark and is updated on every
// valuation for which a bar exists.
type Position struct {
	Symbol       string
	Shares       float64
	AvgPrice     float64
	CurrentPrice float64
}

// Value returns the mark-to-market value of the position.
func (p *Position) Value() float64 {
	return p.Shares * p.CurrentPrice
}

// CostBasis returns the total acquisition cost of the position.
func (p *Position) CostBasis() float64 {
	return p.Shares * p.AvgPrice
}

// UnrealizedPNL returns the profit or loss at the current mark.
func (p *Position) UnrealizedPNL() float64 {
	return p.Value() - p.CostBasis()
}

// UnrealizedPNLPct returns the unrealized profit or loss as a percentage of
// cost basis, or 0 for an empty position.
func (p *Position) UnrealizedPNLPct() float64 {
	basis := p.CostBasis()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPNL() / basis * 100
}

// Trade is an immutable record of one executed order.
type Trade struct {
	Date           time.Time
	Symbol         string
	Action         domain.Recommendation
	Price          float64
	Shares         float64
	Value          float64 // notional, shares × price
	Commission     float64
	CashBefore     float64
	CashAfter      float64
	PortfolioValue float64
	Confidence     int
	Reason         string
}

// minTradeNotional is the smallest order value a buy will place. Residual
// cash below a cent is dust, not buying power.
const minTradeNotional = 0.01

// Ledger owns the cash balance and the open positions of one backtest run.
// Orders that cannot execute (confidence below the minimum, insufficient
// cash, no position to sell) are logged no-ops returning nil; a backtest
// must keep going across ignorable signals.
type Ledger struct {
	cash          float64
	positions     map[string]*Position
	minConfidence int
	prices        PriceLookup
	log           *slog.Logger
}

// NewLedger creates a Ledger starting with initialCapital in cash.
func NewLedger(initialCapital float64, minConfidence int, prices PriceLookup, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		cash:          initialCapital,
		positions:     make(map[string]*Position),
		minConfidence: minConfidence,
		prices:        prices,
		log:           log,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Position returns a copy of the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Mark values the portfolio as of date: each held position is re-marked at
// that day's close when a bar exists, otherwise it keeps its last-known
// mark. Returns cash plus the sum of position values.
func (l *Ledger) Mark(date time.Time) float64 {
	total := l.cash
	for _, pos := range l.positions {
		if c, ok := l.prices.CloseOn(pos.Symbol, date); ok {
			pos.CurrentPrice = c
		}
		total += pos.Value()
	}
	return total
}

// Buy invests notionalFraction of available cash in symbol at price. It
// returns the executed Trade, or nil when the order is skipped.
func (l *Ledger) Buy(symbol string, date time.Time, price float64, confidence int, notionalFraction, commissionRate float64, reason string) *Trade {
	if confidence < l.minConfidence {
		l.log.Debug("confidence below minimum, skipping trade",
			"date", date.Format("2006-01-02"), "symbol", symbol,
			"confidence", confidence, "minConfidence", l.minConfidence)
		return nil
	}

	investable := l.cash * notionalFraction
	shares := investable / price
	value := shares * price
	commission := value * commissionRate
	totalCost := value + commission

	// At full sizing the commission pushes the naive cost over the cash
	// balance. Shrink the order so notional plus commission consumes
	// exactly the investable amount.
	if totalCost > l.cash {
		shares = investable / (price * (1 + commissionRate))
		value = shares * price
		commission = value * commissionRate
		totalCost = value + commission
	}

	// A fully-invested ledger has only dust left; a shrunk order bought
	// with it would be a zero-share entry in the trade log.
	if shares <= 0 || value < minTradeNotional {
		l.log.Warn("insufficient cash for buy",
			"date", date.Format("2006-01-02"), "symbol", symbol,
			"investable", investable, "have", l.cash)
		return nil
	}

	if totalCost > l.cash {
		l.log.Warn("insufficient cash for buy",
			"date", date.Format("2006-01-02"), "symbol", symbol,
			"need", totalCost, "have", l.cash)
		return nil
	}

	cashBefore := l.cash
	l.cash -= totalCost

	if pos, ok := l.positions[symbol]; ok {
		totalShares := pos.Shares + shares
		pos.AvgPrice = (pos.Shares*pos.AvgPrice + value) / totalShares
		pos.Shares = totalShares
	} else {
		l.positions[symbol] = &Position{
			Symbol:       symbol,
			Shares:       shares,
			AvgPrice:     price,
			CurrentPrice: price,
		}
	}

	trade := &Trade{
		Date:           date,
		Symbol:         symbol,
		Action:         domain.RecommendationBuy,
		Price:          price,
		Shares:         shares,
		Value:          value,
		Commission:     commission,
		CashBefore:     cashBefore,
		CashAfter:      l.cash,
		PortfolioValue: l.Mark(date),
		Confidence:     confidence,
		Reason:         reason,
	}

	l.log.Info("buy executed",
		"date", date.Format("2006-01-02"), "symbol", symbol,
		"shares", shares, "price", price, "value", value, "commission", commission)

	return trade
}

// Sell liquidates the entire open position in symbol at price. There are no
// partial sells. It returns the executed Trade, or nil when the order is
// skipped.
func (l *Ledger) Sell(symbol string, date time.Time, price float64, confidence int, commissionRate float64, reason string) *Trade {
	if confidence < l.minConfidence {
		l.log.Debug("confidence below minimum, skipping trade",
			"date", date.Format("2006-01-02"), "symbol", symbol,
			"confidence", confidence, "minConfidence", l.minConfidence)
		return nil
	}

	pos, ok := l.positions[symbol]
	if !ok {
		l.log.Debug("no position to sell",
			"date", date.Format("2006-01-02"), "symbol", symbol)
		return nil
	}

	shares := pos.Shares
	value := shares * price
	commission := value * commissionRate
	proceeds := value - commission

	cashBefore := l.cash
	l.cash += proceeds

	realizedPNL := value - shares*pos.AvgPrice

	delete(l.positions, symbol)

	trade := &Trade{
		Date:           date,
		Symbol:         symbol,
		Action:         domain.RecommendationSell,
		Price:          price,
		Shares:         shares,
		Value:          value,
		Commission:     commission,
		CashBefore:     cashBefore,
		CashAfter:      l.cash,
		PortfolioValue: l.Mark(date),
		Confidence:     confidence,
		Reason:         reason,
	}

	l.log.Info("sell executed",
		"date", date.Format("2006-01-02"), "symbol", symbol,
		"shares", shares, "price", price, "value", value,
		"commission", commission, "realizedPNL", realizedPNL)

	return trade
}
