// Downloads daily bars from Alpaca into the local Parquet store.
//
// Usage:
//
//	fetch -symbols AAPL,NVDA -start 2024-01-01
//	fetch -symbols SPY           (backfills one year up to the last session)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"signalbot/internal/backtest"
	"signalbot/internal/config"
	"signalbot/internal/fetch"
	"signalbot/internal/store"
	"signalbot/internal/util"
)

func main() {
	var (
		symbolsFlag = flag.String("symbols", "", "comma-separated stock symbols (required)")
		startStr    = flag.String("start", "", "start date, YYYY-MM-DD (default one year back)")
		endStr      = flag.String("end", "", "end date, YYYY-MM-DD (default last finished session)")
		cfgPath     = flag.String("config", "config/signalbot.yaml", "config file path")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *symbolsFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: fetch -symbols AAPL,NVDA [-start YYYY-MM-DD] [-end YYYY-MM-DD]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("Alpaca credentials not configured (set ALPACA_API_KEY / ALPACA_API_SECRET)")
	}

	level := cfg.Logging.Level
	if *debug {
		level = "debug"
	}
	logger := util.NewLogger(level)
	util.SetDefault(logger)

	var end time.Time
	if *endStr != "" {
		end, err = time.Parse(backtest.DateFormat, *endStr)
		if err != nil {
			log.Fatalf("invalid end date %q: %v", *endStr, err)
		}
	} else {
		cal := fetch.NewCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		end, err = cal.LatestFinishedTradingDay()
		if err != nil {
			log.Fatalf("failed to determine last trading day: %v", err)
		}
	}

	start := end.AddDate(-1, 0, 0)
	if *startStr != "" {
		start, err = time.Parse(backtest.DateFormat, *startStr)
		if err != nil {
			log.Fatalf("invalid start date %q: %v", *startStr, err)
		}
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	fetcher := fetch.NewBarFetcher(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL, pstore, 0, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var total int
	for _, symbol := range strings.Split(*symbolsFlag, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		n, err := fetcher.Fetch(ctx, symbol, start, end)
		if err != nil {
			log.Fatalf("fetch %s: %v", symbol, err)
		}
		total += n
	}

	fmt.Printf("Fetched %d bars (%s to %s)\n", total,
		start.Format(backtest.DateFormat), end.Format(backtest.DateFormat))
}
