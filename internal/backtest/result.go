package backtest

import "time"

// ValuePoint is one entry of the daily portfolio-value series.
type ValuePoint struct {
	Date  time.Time
	Value float64
}

// Result aggregates everything a backtest run produced. It is built once
// during finalization and never mutated afterwards.
type Result struct {
	Config      Config
	Advisor     string // advisor identifier that generated the signals
	Trades      []Trade
	DailyValues []ValuePoint

	FinalValue      float64
	TotalReturn     float64
	TotalReturnPct  float64
	SharpeRatio     float64
	MaxDrawdown     float64 // percent, <= 0
	WinRate         float64 // percent, [0, 100]
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	AvgWin          float64
	AvgLoss         float64
	TotalCommission float64
}
