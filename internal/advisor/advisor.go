// Package advisor defines the Advisor interface for trading-signal sources
// and provides implementations: an HTTP client for an LLM advisory endpoint
// and an offline moving-average advisor for runs without API access.
package advisor

import (
	"context"
	"time"

	"signalbot/internal/domain"
)

// Advisor produces one trading signal for a symbol as of a specific date.
//
// Implementations must not consult information dated after asOf; backtest
// validity depends on this.
type Advisor interface {
	// Name returns the advisor identifier (e.g. "glm", "momentum").
	Name() string

	// Analyze returns the advisory signal for symbol as of asOf.
	Analyze(ctx context.Context, symbol string, asOf time.Time) (*domain.Signal, error)
}
