// Runs a backtest of the advisory strategy over stored daily bars and
// reports performance metrics.
//
// Usage:
//
//	backtest -symbol AAPL -start 2024-01-02 -end 2024-06-28
//	backtest -symbol NVDA -start 2024-01-02 -end 2024-06-28 -offline
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalbot/internal/advisor"
	"signalbot/internal/backtest"
	"signalbot/internal/config"
	"signalbot/internal/report"
	"signalbot/internal/store"
	"signalbot/internal/util"
)

func main() {
	var (
		symbol        = flag.String("symbol", "", "stock symbol to backtest (required)")
		startStr      = flag.String("start", "", "start date, YYYY-MM-DD (required)")
		endStr        = flag.String("end", "", "end date, YYYY-MM-DD (required)")
		capital       = flag.Float64("capital", 0, "initial capital (default from config)")
		commission    = flag.Float64("commission", -1, "commission as fraction of notional (default from config)")
		positionSize  = flag.Float64("position-size", 0, "fraction of cash per buy, (0,1] (default from config)")
		minConfidence = flag.Int("min-confidence", -1, "minimum signal confidence 0-10 (default from config)")
		offline       = flag.Bool("offline", false, "use the offline momentum advisor instead of the LLM")
		cfgPath       = flag.String("config", "config/signalbot.yaml", "config file path")
		outputDir     = flag.String("output-dir", "", "directory for JSON/CSV exports (default from config)")
		noSave        = flag.Bool("no-save", false, "skip recording the run in the results database")
		debug         = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *symbol == "" || *startStr == "" || *endStr == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -symbol SYMBOL -start YYYY-MM-DD -end YYYY-MM-DD [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	level := cfg.Logging.Level
	if *debug {
		level = "debug"
	}
	logger := util.NewLogger(level)
	util.SetDefault(logger)

	start, err := time.Parse(backtest.DateFormat, *startStr)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", *startStr, err)
	}
	end, err := time.Parse(backtest.DateFormat, *endStr)
	if err != nil {
		log.Fatalf("invalid end date %q: %v", *endStr, err)
	}

	runCfg := backtest.Config{
		Symbol:         *symbol,
		Start:          start,
		End:            end,
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionPct:  cfg.Backtest.CommissionPct,
		PositionSize:   cfg.Backtest.PositionSizePct,
		MinConfidence:  cfg.Backtest.MinConfidence,
	}
	if *capital > 0 {
		runCfg.InitialCapital = *capital
	}
	if *commission >= 0 {
		runCfg.CommissionPct = *commission
	}
	if *positionSize > 0 {
		runCfg.PositionSize = *positionSize
	}
	if *minConfidence >= 0 {
		runCfg.MinConfidence = *minConfidence
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)

	var adv advisor.Advisor
	if *offline {
		adv = advisor.NewMomentumAdvisor(bars, "us", 0, 0)
	} else {
		if cfg.Advisor.APIKey == "" {
			log.Fatal("advisor API key not configured (set GLM_API_KEY or use -offline)")
		}
		adv = advisor.NewGLMAdvisor(cfg.Advisor.BaseURL, cfg.Advisor.APIKey, cfg.Advisor.Model,
			advisor.Options{
				Timeout:         time.Duration(cfg.Advisor.TimeoutSeconds) * time.Second,
				MaxAttempts:     cfg.Advisor.MaxAttempts,
				RateLimitPerMin: cfg.Advisor.RateLimitPerMin,
			}, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := backtest.New(runCfg, bars, adv, nil, logger)
	res, err := engine.Run(ctx)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	fmt.Print(report.Summary(res))

	resultsDir := cfg.Storage.ResultsDir
	if *outputDir != "" {
		resultsDir = *outputDir
	}

	jsonPath, err := report.SaveJSON(res, resultsDir)
	if err != nil {
		log.Fatalf("failed to export JSON: %v", err)
	}
	fmt.Printf("\nResults saved to %s\n", jsonPath)

	csvPath, err := report.SaveTradeCSV(res, resultsDir)
	if err != nil {
		log.Fatalf("failed to export trade log: %v", err)
	}
	if csvPath != "" {
		fmt.Printf("Trade log saved to %s\n", csvPath)
	}

	if !*noSave {
		runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open results database: %v", err)
		}
		defer runs.Close()

		id, err := runs.SaveRun(ctx, res)
		if err != nil {
			log.Fatalf("failed to record run: %v", err)
		}
		fmt.Printf("Recorded as run #%d\n", id)
	}
}
