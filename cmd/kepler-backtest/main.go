// Run one backtest of a built-in strategy over stored daily bars and print
// the performance report.
//
// Usage:
//
//	go run cmd/kepler-backtest/main.go -symbol AAPL -strategy ma-cross \
//	    -start 2022-01-01 -end 2024-12-31 -capital 100000 \
//	    -params "shortPeriod=10,longPeriod=30" [-out reports/]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/backtest"
	"kepler/internal/config"
	"kepler/internal/store"
	"kepler/internal/strategy/builtins"
	"kepler/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to backtest (required)")
	strategyType := flag.String("strategy", "ma-cross", "strategy type: ma-cross, rsi, macd, bollinger, momentum")
	params := flag.String("params", "", "strategy parameters, e.g. \"shortPeriod=10,longPeriod=30\"")
	start := flag.String("start", "", "start date YYYY-MM-DD (required)")
	end := flag.String("end", "", "end date YYYY-MM-DD (required)")
	capital := flag.String("capital", "", "initial capital (default: config value, then 100000)")
	positionPct := flag.Float64("position-pct", 0, "percent of cash per entry (0 = default 100)")
	maxPositions := flag.Int("max-positions", 0, "max concurrent open lots (0 = default 1)")
	stopLoss := flag.Float64("stop-loss", 0, "stop-loss percent below entry (0 = disabled)")
	takeProfit := flag.Float64("take-profit", 0, "take-profit percent above entry (0 = disabled)")
	trailingStop := flag.Float64("trailing-stop", 0, "trailing stop percent below the high-water mark (0 = disabled)")
	riskFree := flag.Float64("risk-free", 0, "annualized risk-free rate for Sharpe/Sortino")
	out := flag.String("out", "", "directory for CSV export (empty = no export)")
	list := flag.Bool("list", false, "list the built-in strategies and exit")
	flag.Parse()

	if *list {
		reg := builtins.DefaultRegistry()
		for _, name := range reg.List() {
			s, _ := reg.Get(name)
			fmt.Printf("%-10s %s (min %d bars)\n", name, s.Description(), s.MinDataPoints())
		}
		return
	}

	if *symbol == "" || *start == "" || *end == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	barStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open bar store: %v", err)
	}
	defer closeStore()

	req := backtest.Request{
		Symbol:       strings.ToUpper(*symbol),
		StrategyType: *strategyType,
		Params:       parseParams(*params),
		StartDate:    parseDate(*start),
		EndDate:      parseDate(*end),
		RiskFreeRate: *riskFree,
		MaxPositions: *maxPositions,
	}
	if *capital != "" {
		req.InitialCapital, err = decimal.NewFromString(*capital)
		if err != nil {
			log.Fatalf("invalid -capital %q: %v", *capital, err)
		}
	}
	if *positionPct > 0 {
		req.PositionSizePct = decimal.NewFromFloat(*positionPct)
	}
	if *stopLoss > 0 {
		req.StopLossPct = decimal.NewFromFloat(*stopLoss)
	}
	if *takeProfit > 0 {
		req.TakeProfitPct = decimal.NewFromFloat(*takeProfit)
	}
	if *trailingStop > 0 {
		req.TrailingStopPct = decimal.NewFromFloat(*trailingStop)
	}

	// Flags win over config; config wins over the built-in defaults.
	if err := req.ApplyConfig(cfg.Backtest); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if req.InitialCapital.IsZero() {
		req.InitialCapital = decimal.NewFromInt(100000)
	}

	bt := backtest.NewBacktester(barStore, logger)
	res, err := bt.Run(context.Background(), req)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
	if res.Empty() {
		fmt.Println("no result: price series shorter than the strategy minimum")
		return
	}

	printReport(res)

	if *out != "" {
		if err := backtest.ExportCSV(res, *out); err != nil {
			log.Fatalf("csv export failed: %v", err)
		}
		fmt.Printf("\nCSV written to %s\n", *out)
	}
}

func printReport(res *backtest.Result) {
	m := res.Metrics
	fmt.Printf("=== %s / %s ===\n", res.Symbol, res.StrategyDesc)
	fmt.Printf("Period:          %s .. %s\n", res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))
	fmt.Printf("Capital:         %s -> %s\n", res.InitialCapital, res.FinalCapital.Round(2))
	fmt.Printf("Total return:    %.2f%%\n", m.TotalReturnPct)
	fmt.Printf("CAGR:            %.2f%%\n", m.CAGR*100)
	fmt.Printf("Sharpe:          %.3f\n", m.Sharpe)
	fmt.Printf("Sortino:         %.3f\n", m.Sortino)
	fmt.Printf("Calmar:          %.3f\n", m.Calmar)
	fmt.Printf("Max drawdown:    %.2f%%\n", m.MaxDrawdownPct)
	fmt.Printf("Trades:          %d (%d wins / %d losses, win rate %.1f%%)\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate*100)
	if m.ProfitFactor == backtest.ProfitFactorUndefined {
		fmt.Printf("Profit factor:   n/a (no losing trades)\n")
	} else {
		fmt.Printf("Profit factor:   %.3f\n", m.ProfitFactor)
	}
	fmt.Printf("Expectancy:      %s per trade\n", m.Expectancy)
	fmt.Printf("Streaks:         %d wins / %d losses\n", m.MaxConsecWins, m.MaxConsecLosses)

	if len(res.Monthly) > 0 {
		fmt.Println("\nMonthly breakdown:")
		for _, mp := range res.Monthly {
			fmt.Printf("  %d-%02d  profit %10s  trades %3d  wins %3d\n",
				mp.Year, int(mp.Month), mp.Profit.String(), mp.Trades, mp.Wins)
		}
	}
	if len(res.Gaps) > 0 {
		fmt.Printf("\nData gaps: %d\n", len(res.Gaps))
		for _, g := range res.Gaps {
			fmt.Printf("  %s\n", g)
		}
	}
}

func loadConfig() *config.Config {
	cfgPath := "config/kepler.yaml"
	if p := os.Getenv("KEPLER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config.Default()
		}
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func openStore(cfg *config.Config) (store.BarStore, func(), error) {
	switch cfg.Storage.Backend {
	case "parquet":
		return store.NewParquetStore(cfg.Storage.DataDir), func() {}, nil
	case "sqlite", "":
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// parseParams parses "name=value,name=value" into a parameter map.
func parseParams(s string) map[string]float64 {
	if s == "" {
		return nil
	}
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			log.Fatalf("invalid -params entry %q, want name=value", pair)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid -params value %q: %v", pair, err)
		}
		out[name] = f
	}
	return out
}

func parseDate(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		log.Fatalf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d
}
