// Package report renders and exports backtest results: a terminal summary,
// a structured JSON document, and a CSV trade log.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"signalbot/internal/backtest"
)

// ---------------------------------------------------------------------------
// JSON export
// ---------------------------------------------------------------------------

// Document is the serialized form of a backtest result.
type Document struct {
	Config      ConfigBlock      `json:"config"`
	Performance PerformanceBlock `json:"performance"`
	Trades      TradesBlock      `json:"trades"`
}

// ConfigBlock echoes the run parameters.
type ConfigBlock struct {
	Symbol          string  `json:"symbol"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	InitialCapital  float64 `json:"initial_capital"`
	CommissionPct   float64 `json:"commission_pct"`
	PositionSizePct float64 `json:"position_size_pct"`
}

// PerformanceBlock holds the headline performance metrics.
type PerformanceBlock struct {
	FinalPortfolioValue float64 `json:"final_portfolio_value"`
	TotalReturn         float64 `json:"total_return"`
	TotalReturnPct      float64 `json:"total_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	WinRate             float64 `json:"win_rate"`
}

// TradesBlock holds the trade-quality statistics.
type TradesBlock struct {
	Total           int     `json:"total"`
	Winning         int     `json:"winning"`
	Losing          int     `json:"losing"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	TotalCommission float64 `json:"total_commission"`
}

// NewDocument builds the export document for a result.
func NewDocument(res *backtest.Result) Document {
	return Document{
		Config: ConfigBlock{
			Symbol:          res.Config.Symbol,
			StartDate:       res.Config.Start.Format(backtest.DateFormat),
			EndDate:         res.Config.End.Format(backtest.DateFormat),
			InitialCapital:  res.Config.InitialCapital,
			CommissionPct:   res.Config.CommissionPct,
			PositionSizePct: res.Config.PositionSize,
		},
		Performance: PerformanceBlock{
			FinalPortfolioValue: res.FinalValue,
			TotalReturn:         res.TotalReturn,
			TotalReturnPct:      res.TotalReturnPct,
			SharpeRatio:         res.SharpeRatio,
			MaxDrawdown:         res.MaxDrawdown,
			WinRate:             res.WinRate,
		},
		Trades: TradesBlock{
			Total:           res.TotalTrades,
			Winning:         res.WinningTrades,
			Losing:          res.LosingTrades,
			AvgWin:          res.AvgWin,
			AvgLoss:         res.AvgLoss,
			TotalCommission: res.TotalCommission,
		},
	}
}

// SaveJSON writes the result document to
// <outputDir>/backtest_<SYMBOL>_<timestamp>.json and returns the path.
func SaveJSON(res *backtest.Result, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(outputDir,
		fmt.Sprintf("backtest_%s_%s.json", res.Config.Symbol, time.Now().Format("20060102_150405")))

	data, err := json.MarshalIndent(NewDocument(res), "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// CSV trade log
// ---------------------------------------------------------------------------

// SaveTradeCSV writes the trade log to
// <outputDir>/trades_<SYMBOL>_<timestamp>.csv and returns the path. A run
// with no trades produces no file and an empty path.
func SaveTradeCSV(res *backtest.Result, outputDir string) (string, error) {
	if len(res.Trades) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(outputDir,
		fmt.Sprintf("trades_%s_%s.csv", res.Config.Symbol, time.Now().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"date", "symbol", "action", "price", "shares", "value",
		"commission", "portfolio_value", "confidence"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, t := range res.Trades {
		record := []string{
			t.Date.Format(backtest.DateFormat),
			t.Symbol,
			string(t.Action),
			formatFloat(t.Price),
			formatFloat(t.Shares),
			formatFloat(t.Value),
			formatFloat(t.Commission),
			formatFloat(t.PortfolioValue),
			strconv.Itoa(t.Confidence),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---------------------------------------------------------------------------
// Terminal summary
// ---------------------------------------------------------------------------

// Rating buckets a total return percentage into a qualitative band.
func Rating(totalReturnPct float64) string {
	switch {
	case totalReturnPct > 20:
		return "EXCELLENT"
	case totalReturnPct > 10:
		return "GOOD"
	case totalReturnPct > 0:
		return "POSITIVE"
	case totalReturnPct > -10:
		return "SLIGHT LOSS"
	default:
		return "POOR"
	}
}

// Summary renders a human-readable multi-line summary of the result.
func Summary(res *backtest.Result) string {
	var b strings.Builder
	sep := strings.Repeat("=", 64)

	fmt.Fprintf(&b, "%s\nBACKTEST RESULTS SUMMARY\n%s\n\n", sep, sep)

	fmt.Fprintf(&b, "Configuration:\n")
	fmt.Fprintf(&b, "  Symbol:          %s\n", res.Config.Symbol)
	fmt.Fprintf(&b, "  Period:          %s to %s\n",
		res.Config.Start.Format(backtest.DateFormat), res.Config.End.Format(backtest.DateFormat))
	fmt.Fprintf(&b, "  Initial Capital: $%.2f\n", res.Config.InitialCapital)
	fmt.Fprintf(&b, "  Commission:      %.2f%%\n", res.Config.CommissionPct*100)
	fmt.Fprintf(&b, "  Position Size:   %.0f%%\n", res.Config.PositionSize*100)
	fmt.Fprintf(&b, "  Min Confidence:  %d/10\n", res.Config.MinConfidence)
	fmt.Fprintf(&b, "  Advisor:         %s\n\n", res.Advisor)

	fmt.Fprintf(&b, "Performance:\n")
	fmt.Fprintf(&b, "  Final Value:     $%.2f\n", res.FinalValue)
	fmt.Fprintf(&b, "  Total Return:    $%.2f\n", res.TotalReturn)
	fmt.Fprintf(&b, "  Return %%:        %+.2f%%\n", res.TotalReturnPct)
	fmt.Fprintf(&b, "  Sharpe Ratio:    %.2f\n", res.SharpeRatio)
	fmt.Fprintf(&b, "  Max Drawdown:    %.2f%%\n\n", res.MaxDrawdown)

	fmt.Fprintf(&b, "Trading Statistics:\n")
	fmt.Fprintf(&b, "  Total Trades:    %d\n", res.TotalTrades)
	fmt.Fprintf(&b, "  Winning Trades:  %d\n", res.WinningTrades)
	fmt.Fprintf(&b, "  Losing Trades:   %d\n", res.LosingTrades)
	fmt.Fprintf(&b, "  Win Rate:        %.2f%%\n", res.WinRate)
	if res.AvgWin > 0 {
		fmt.Fprintf(&b, "  Average Win:     $%.2f\n", res.AvgWin)
	}
	if res.AvgLoss < 0 {
		fmt.Fprintf(&b, "  Average Loss:    $%.2f\n", res.AvgLoss)
	}
	fmt.Fprintf(&b, "  Total Commission: $%.2f\n\n", res.TotalCommission)

	fmt.Fprintf(&b, "Rating: %s\n%s\n", Rating(res.TotalReturnPct), sep)

	return b.String()
}
