package backtest

import (
	"math"
	"testing"

	"signalbot/internal/domain"
)

func valueSeries(start string, vals ...float64) []ValuePoint {
	d := day(start)
	out := make([]ValuePoint, len(vals))
	for i, v := range vals {
		out[i] = ValuePoint{Date: d.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestCalculateMetricsEmpty(t *testing.T) {
	res := calculateMetrics(nil, nil, 100000)

	if res.FinalValue != 100000 {
		t.Errorf("FinalValue = %v, want 100000", res.FinalValue)
	}
	if res.TotalReturn != 0 || res.TotalReturnPct != 0 {
		t.Errorf("TotalReturn = %v (%v%%), want 0", res.TotalReturn, res.TotalReturnPct)
	}
	if res.SharpeRatio != 0 || res.MaxDrawdown != 0 || res.WinRate != 0 {
		t.Errorf("metrics = sharpe %v, drawdown %v, winRate %v, want all 0",
			res.SharpeRatio, res.MaxDrawdown, res.WinRate)
	}
	if res.TotalTrades != 0 {
		t.Errorf("TotalTrades = %d, want 0", res.TotalTrades)
	}
}

func TestCalculateMetricsWinningRoundTrip(t *testing.T) {
	trades := []Trade{
		{Date: day("2024-01-02"), Symbol: "AAPL", Action: domain.RecommendationBuy, Price: 100, Shares: 1000},
		{Date: day("2024-01-10"), Symbol: "AAPL", Action: domain.RecommendationSell, Price: 110, Shares: 1000},
	}
	values := valueSeries("2024-01-02", 100000, 103000, 107000, 110000)

	res := calculateMetrics(trades, values, 100000)

	if res.WinRate != 100 {
		t.Errorf("WinRate = %v, want 100", res.WinRate)
	}
	if res.WinningTrades != 1 || res.LosingTrades != 0 {
		t.Errorf("winning/losing = %d/%d, want 1/0", res.WinningTrades, res.LosingTrades)
	}
	if res.AvgLoss != 0 {
		t.Errorf("AvgLoss = %v, want 0", res.AvgLoss)
	}
	if !almostEqual(res.AvgWin, 10000, 1e-9) {
		t.Errorf("AvgWin = %v, want 10000", res.AvgWin)
	}
	if res.TotalReturnPct <= 0 {
		t.Errorf("TotalReturnPct = %v, want > 0", res.TotalReturnPct)
	}
}

func TestCalculateMetricsCommissionTurnsWinIntoLoss(t *testing.T) {
	// 1 point of price gain, 200 of commission across both legs.
	trades := []Trade{
		{Action: domain.RecommendationBuy, Price: 100, Shares: 10, Commission: 150},
		{Action: domain.RecommendationSell, Price: 101, Shares: 10, Commission: 50},
	}
	values := valueSeries("2024-01-02", 100000, 99810)

	res := calculateMetrics(trades, values, 100000)

	if res.WinningTrades != 0 || res.LosingTrades != 1 {
		t.Errorf("winning/losing = %d/%d, want 0/1", res.WinningTrades, res.LosingTrades)
	}
	if !almostEqual(res.AvgLoss, -190, 1e-9) {
		t.Errorf("AvgLoss = %v, want -190", res.AvgLoss)
	}
}

func TestCalculateMetricsPairBounds(t *testing.T) {
	trades := []Trade{
		{Action: domain.RecommendationBuy, Price: 100, Shares: 10},
		{Action: domain.RecommendationSell, Price: 120, Shares: 10},
		{Action: domain.RecommendationBuy, Price: 110, Shares: 10},
		// Final buy has no matching sell.
	}
	res := calculateMetrics(trades, valueSeries("2024-01-02", 100000, 100200), 100000)

	if res.WinningTrades+res.LosingTrades > 1 {
		t.Errorf("winning+losing = %d, want <= 1 (min of buys and sells)",
			res.WinningTrades+res.LosingTrades)
	}
	if res.WinRate < 0 || res.WinRate > 100 {
		t.Errorf("WinRate = %v, want within [0,100]", res.WinRate)
	}
}

func TestSharpeRatioFlatSeries(t *testing.T) {
	got := sharpeRatio(valueSeries("2024-01-02", 100000, 100000, 100000, 100000))
	if got != 0 {
		t.Errorf("sharpeRatio(flat) = %v, want 0", got)
	}
}

func TestSharpeRatioSingleValue(t *testing.T) {
	got := sharpeRatio(valueSeries("2024-01-02", 100000))
	if got != 0 {
		t.Errorf("sharpeRatio(single value) = %v, want 0", got)
	}
}

func TestSharpeRatioKnownSeries(t *testing.T) {
	// Returns are +10% then -5%: mean 0.025, sample std 0.075*sqrt(2),
	// annualized the ratio is exactly sqrt(14).
	got := sharpeRatio(valueSeries("2024-01-02", 100, 110, 104.5))
	if !almostEqual(got, math.Sqrt(14), 1e-9) {
		t.Errorf("sharpeRatio = %v, want %v", got, math.Sqrt(14))
	}
}

func TestMaxDrawdown(t *testing.T) {
	got := maxDrawdown(valueSeries("2024-01-02", 100, 120, 90, 110))
	if !almostEqual(got, -25, 1e-9) {
		t.Errorf("maxDrawdown = %v, want -25", got)
	}
}

func TestMaxDrawdownRisingSeries(t *testing.T) {
	got := maxDrawdown(valueSeries("2024-01-02", 100, 105, 111))
	if got != 0 {
		t.Errorf("maxDrawdown(rising) = %v, want 0", got)
	}
}

func TestMaxDrawdownBounds(t *testing.T) {
	got := maxDrawdown(valueSeries("2024-01-02", 100, 0.0001))
	if got > 0 || got < -100 {
		t.Errorf("maxDrawdown = %v, want within [-100, 0]", got)
	}
}
