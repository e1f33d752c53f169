package backtest

import (
	"time"

	"signalbot/internal/domain"
)

// Policy maps an advisory signal to a ledger call. Implementations are
// stateless: strategy rules live here, bookkeeping lives in the Ledger, so
// alternative sizing or short-capable policies can be substituted without
// touching either.
type Policy interface {
	// Name returns the policy identifier.
	Name() string

	// Apply executes the signal against the ledger at the day's close price.
	// It returns the resulting Trade, or nil when no trade took place.
	Apply(ledger *Ledger, signal *domain.Signal, date time.Time, price float64) *Trade
}

// Compile-time interface check.
var _ Policy = (*FullLiquidationPolicy)(nil)

// FullLiquidationPolicy is the default long-only policy: BUY invests a fixed
// fraction of available cash, SELL always liquidates the entire position,
// HOLD does nothing. It never opens short positions.
type FullLiquidationPolicy struct {
	PositionSize  float64 // fraction of available cash per buy
	CommissionPct float64 // fraction of notional per trade
}

// NewFullLiquidationPolicy creates the default policy with the given sizing
// and commission parameters.
func NewFullLiquidationPolicy(positionSize, commissionPct float64) *FullLiquidationPolicy {
	return &FullLiquidationPolicy{
		PositionSize:  positionSize,
		CommissionPct: commissionPct,
	}
}

// Name returns "full-liquidation".
func (p *FullLiquidationPolicy) Name() string { return "full-liquidation" }

// Apply routes the signal to the ledger.
func (p *FullLiquidationPolicy) Apply(ledger *Ledger, signal *domain.Signal, date time.Time, price float64) *Trade {
	switch signal.Recommendation {
	case domain.RecommendationBuy:
		return ledger.Buy(signal.Symbol, date, price, signal.Confidence,
			p.PositionSize, p.CommissionPct, signal.Reasons)
	case domain.RecommendationSell:
		return ledger.Sell(signal.Symbol, date, price, signal.Confidence,
			p.CommissionPct, signal.Reasons)
	default:
		return nil
	}
}
