// Package domain defines the shared data types used across the signalbot
// system: market data bars and advisory trading signals.
package domain

import (
	"strings"
	"time"
)

// Recommendation is the trading action suggested by an advisor.
type Recommendation string

// Recommendation values.
const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
)

// Confidence bounds for advisory signals.
const (
	MinConfidence = 0
	MaxConfidence = 10
)

// Bar is a single daily OHLCV bar for one symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Signal is one advisory trading signal for a symbol as of a specific date.
type Signal struct {
	Symbol         string
	AsOf           time.Time
	Recommendation Recommendation
	Confidence     int // 0-10
	Reasons        string
}

// NormalizeRecommendation maps free-form advisor output onto one of the
// three Recommendation values. Unrecognised input maps to HOLD.
func NormalizeRecommendation(s string) Recommendation {
	switch Recommendation(strings.ToUpper(strings.TrimSpace(s))) {
	case RecommendationBuy:
		return RecommendationBuy
	case RecommendationSell:
		return RecommendationSell
	default:
		return RecommendationHold
	}
}

// ClampConfidence bounds a confidence score to [MinConfidence, MaxConfidence].
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}
