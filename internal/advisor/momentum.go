package advisor

import (
	"context"
	"fmt"
	"math"
	"time"

	"signalbot/internal/domain"
)

// Compile-time interface check.
var _ Advisor = (*MomentumAdvisor)(nil)

// BarReader is the slice of the bar store the momentum advisor needs.
type BarReader interface {
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)
}

// MomentumAdvisor is an offline, deterministic advisor based on a moving
// average crossover. It recommends BUY when the short-period average closes
// above the long-period average, SELL when below, and HOLD near the cross.
// Confidence scales with the relative gap between the two averages.
//
// It reads only bars dated at or before the requested day.
type MomentumAdvisor struct {
	bars        BarReader
	market      string
	shortPeriod int
	longPeriod  int
}

// NewMomentumAdvisor creates a MomentumAdvisor reading daily bars from the
// given store. Periods default to 5/15 when non-positive.
func NewMomentumAdvisor(bars BarReader, market string, shortPeriod, longPeriod int) *MomentumAdvisor {
	if shortPeriod <= 0 {
		shortPeriod = 5
	}
	if longPeriod <= shortPeriod {
		longPeriod = 3 * shortPeriod
	}
	if market == "" {
		market = "us"
	}
	return &MomentumAdvisor{
		bars:        bars,
		market:      market,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
	}
}

// Name returns "momentum".
func (a *MomentumAdvisor) Name() string { return "momentum" }

// Analyze computes the crossover signal for symbol as of asOf.
func (a *MomentumAdvisor) Analyze(ctx context.Context, symbol string, asOf time.Time) (*domain.Signal, error) {
	// Fetch a lookback window wide enough to cover longPeriod trading days
	// plus weekends and holidays.
	lookbackDays := a.longPeriod*2 + 10
	start := asOf.AddDate(0, 0, -lookbackDays)

	bars, err := a.bars.ReadBars(ctx, symbol, a.market, start, asOf)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	if len(bars) < a.longPeriod {
		// Not enough history to form an opinion.
		return &domain.Signal{
			Symbol:         symbol,
			AsOf:           asOf,
			Recommendation: domain.RecommendationHold,
			Confidence:     0,
			Reasons:        fmt.Sprintf("insufficient history: %d bars, need %d", len(bars), a.longPeriod),
		}, nil
	}

	shortMA := meanClose(bars[len(bars)-a.shortPeriod:])
	longMA := meanClose(bars[len(bars)-a.longPeriod:])

	// Relative gap between the averages drives both direction and confidence.
	gap := (shortMA - longMA) / longMA

	rec := domain.RecommendationHold
	switch {
	case gap > holdBand:
		rec = domain.RecommendationBuy
	case gap < -holdBand:
		rec = domain.RecommendationSell
	}

	// 1% gap maps to confidence 5, 2%+ saturates at 10.
	confidence := domain.ClampConfidence(int(math.Round(math.Abs(gap) * 500)))

	return &domain.Signal{
		Symbol:         symbol,
		AsOf:           asOf,
		Recommendation: rec,
		Confidence:     confidence,
		Reasons: fmt.Sprintf("SMA%d=%.2f SMA%d=%.2f gap=%.2f%%",
			a.shortPeriod, shortMA, a.longPeriod, longMA, gap*100),
	}, nil
}

// holdBand is the no-signal zone around the crossover, as a fraction of the
// long average.
const holdBand = 0.002

func meanClose(bars []domain.Bar) float64 {
	var sum float64
	for _, b := range bars {
		sum += b.Close
	}
	return sum / float64(len(bars))
}
