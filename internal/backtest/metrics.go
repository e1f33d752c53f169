package backtest

import (
	"math"

	"signalbot/internal/domain"
)

// tradingDaysPerYear is the annualization convention for the Sharpe ratio.
const tradingDaysPerYear = 252

// calculateMetrics reduces the trade log and daily value series into
// performance statistics. It is a pure function with no dependency on the
// engine or ledger, so it can be tested against synthetic histories.
//
// Degenerate inputs (no trades, no recorded days, zero-variance returns)
// yield zero-valued metrics rather than errors.
func calculateMetrics(trades []Trade, values []ValuePoint, initialCapital float64) Result {
	res := Result{
		Trades:      trades,
		DailyValues: values,
		TotalTrades: len(trades),
	}

	if len(values) > 0 {
		res.FinalValue = values[len(values)-1].Value
	} else {
		res.FinalValue = initialCapital
	}

	res.TotalReturn = res.FinalValue - initialCapital
	res.TotalReturnPct = res.TotalReturn / initialCapital * 100

	for _, t := range trades {
		res.TotalCommission += t.Commission
	}

	// Win/loss analysis pairs the i-th buy with the i-th sell by order of
	// occurrence. This assumes strictly alternating buys and sells, which
	// the full-liquidation policy produces for a single symbol; other
	// interleavings would mispair.
	var buys, sells []Trade
	for _, t := range trades {
		switch t.Action {
		case domain.RecommendationBuy:
			buys = append(buys, t)
		case domain.RecommendationSell:
			sells = append(sells, t)
		}
	}

	pairs := len(buys)
	if len(sells) < pairs {
		pairs = len(sells)
	}

	var winSum, lossSum float64
	for i := 0; i < pairs; i++ {
		pnl := (sells[i].Price-buys[i].Price)*buys[i].Shares - buys[i].Commission - sells[i].Commission
		if pnl > 0 {
			res.WinningTrades++
			winSum += pnl
		} else if pnl < 0 {
			res.LosingTrades++
			lossSum += pnl
		}
	}
	if pairs > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(pairs) * 100
	}
	if res.WinningTrades > 0 {
		res.AvgWin = winSum / float64(res.WinningTrades)
	}
	if res.LosingTrades > 0 {
		res.AvgLoss = lossSum / float64(res.LosingTrades)
	}

	res.SharpeRatio = sharpeRatio(values)
	res.MaxDrawdown = maxDrawdown(values)

	return res
}

// sharpeRatio computes the annualized Sharpe ratio of the day-over-day
// percentage returns of the value series. Fewer than two values, or a
// return series with zero standard deviation, yields 0.
func sharpeRatio(values []ValuePoint) float64 {
	if len(values) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1].Value
		if prev == 0 {
			return 0
		}
		returns = append(returns, (values[i].Value-prev)/prev)
	}

	mean := meanOf(returns)
	std := sampleStd(returns, mean)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the most negative percentage decline from the running
// maximum of the value series, or 0 for an empty or non-declining series.
func maxDrawdown(values []ValuePoint) float64 {
	if len(values) == 0 {
		return 0
	}

	runningMax := values[0].Value
	worst := 0.0
	for _, v := range values {
		if v.Value > runningMax {
			runningMax = v.Value
		}
		if runningMax == 0 {
			continue
		}
		dd := (v.Value - runningMax) / runningMax * 100
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the sample standard deviation (n-1 denominator), matching
// the convention of the usual dataframe libraries.
func sampleStd(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
