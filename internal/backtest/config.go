package backtest

import (
	"fmt"
	"time"
)

// Config holds the parameters of one backtest run. It is immutable for the
// duration of the run; concurrent runs each get their own Config so no
// process-wide settings exist.
type Config struct {
	Symbol         string
	Market         string // bar store market segment, defaults to "us"
	Start          time.Time
	End            time.Time
	InitialCapital float64
	CommissionPct  float64 // fraction of notional per trade, e.g. 0.001
	PositionSize   float64 // fraction of available cash per buy, (0, 1]
	AllowShort     bool    // reserved, the default policy never shorts
	Rebalance      string  // reserved, daily only
	MinConfidence  int     // minimum signal confidence to act on, 0-10
}

// DateFormat is the calendar-day layout used throughout the backtest.
const DateFormat = "2006-01-02"

// minBacktestDays is the shortest allowed date range.
const minBacktestDays = 5

// Validate checks the configuration before any simulation state is created.
// now anchors the not-in-the-future check.
func (c *Config) Validate(now time.Time) error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if !c.Start.Before(c.End) {
		return fmt.Errorf("start date %s must be before end date %s",
			c.Start.Format(DateFormat), c.End.Format(DateFormat))
	}
	if c.End.After(now) {
		return fmt.Errorf("end date %s cannot be in the future", c.End.Format(DateFormat))
	}
	if c.End.Sub(c.Start) < minBacktestDays*24*time.Hour {
		return fmt.Errorf("backtest period must be at least %d days", minBacktestDays)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.CommissionPct < 0 {
		return fmt.Errorf("commission must not be negative, got %v", c.CommissionPct)
	}
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return fmt.Errorf("position size must be in (0, 1], got %v", c.PositionSize)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 10 {
		return fmt.Errorf("min confidence must be in [0, 10], got %d", c.MinConfidence)
	}
	return nil
}

// market returns the configured market segment, defaulting to "us".
func (c *Config) market() string {
	if c.Market == "" {
		return "us"
	}
	return c.Market
}
