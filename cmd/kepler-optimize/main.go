// Sweep a strategy parameter grid over stored daily bars and rank the
// outcomes.
//
// Usage:
//
//	go run cmd/kepler-optimize/main.go -symbol AAPL -strategy ma-cross \
//	    -start 2022-01-01 -end 2024-12-31 \
//	    -grid "shortPeriod=5,10,20;longPeriod=30,50" [-workers 8] [-top 10]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/backtest"
	"kepler/internal/config"
	"kepler/internal/store"
	"kepler/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to optimize (required)")
	strategyType := flag.String("strategy", "ma-cross", "strategy type: ma-cross, rsi, macd, bollinger, momentum")
	gridSpec := flag.String("grid", "", "parameter grid, e.g. \"shortPeriod=5,10,20;longPeriod=30,50\" (required)")
	start := flag.String("start", "", "start date YYYY-MM-DD (required)")
	end := flag.String("end", "", "end date YYYY-MM-DD (required)")
	capital := flag.String("capital", "", "initial capital (default: config value, then 100000)")
	workers := flag.Int("workers", 0, "concurrent runs (0 = config, then GOMAXPROCS)")
	timeout := flag.Duration("timeout", 0, "overall wall-clock limit (0 = config, then none)")
	top := flag.Int("top", 10, "number of ranked runs to print")
	out := flag.String("out", "", "CSV path for the full ranking (empty = config output_dir, '-' = none)")
	flag.Parse()

	if *symbol == "" || *gridSpec == "" || *start == "" || *end == "" {
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
		StartDate:    parseDate(*start),
		EndDate:      parseDate(*end),
	}
	if *capital != "" {
		req.InitialCapital, err = decimal.NewFromString(*capital)
		if err != nil {
			log.Fatalf("invalid -capital %q: %v", *capital, err)
		}
	}

	// Flags win over config; config wins over the built-in defaults.
	if err := req.ApplyConfig(cfg.Backtest); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if req.InitialCapital.IsZero() {
		req.InitialCapital = decimal.NewFromInt(100000)
	}

	grid := parseGrid(*gridSpec)

	opts := backtest.SweepOptions{Workers: *workers, Timeout: *timeout}
	if opts.Workers == 0 {
		opts.Workers = cfg.Sweep.Workers
	}
	if opts.Timeout == 0 && cfg.Sweep.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.Sweep.TimeoutSeconds) * time.Second
	}

	bars, err := barStore.ReadBars(context.Background(), req.Symbol, req.StartDate, req.EndDate)
	if err != nil {
		log.Fatalf("failed to read bars for %s: %v", req.Symbol, err)
	}

	started := time.Now()
	sr, err := backtest.Sweep(context.Background(), bars, req, grid, opts)
	if err != nil {
		// A timeout still carries the completed runs; report and continue.
		if sr == nil {
			log.Fatalf("sweep failed: %v", err)
		}
		logger.Warn("sweep ended early", "error", err, "completed", len(sr.Ranked), "total", sr.Total)
	}

	logger.Info("sweep complete",
		"symbol", req.Symbol, "strategy", req.StrategyType,
		"combinations", sr.Total, "ranked", len(sr.Ranked),
		"elapsed", time.Since(started).Round(time.Millisecond).String())

	if len(sr.Ranked) == 0 {
		fmt.Println("no successful runs")
		return
	}

	names := gridNames(grid)
	printRanking(sr, names, *top)

	csvPath := *out
	if csvPath == "" && cfg.Sweep.OutputDir != "" {
		csvPath = filepath.Join(cfg.Sweep.OutputDir,
			fmt.Sprintf("%s_%s_sweep.csv", req.Symbol, req.StrategyType))
	}
	if csvPath != "" && csvPath != "-" {
		if err := backtest.ExportSweepCSV(sr, names, csvPath); err != nil {
			log.Fatalf("csv export failed: %v", err)
		}
		fmt.Printf("\nranking written to %s\n", csvPath)
	}
}

func printRanking(sr *backtest.SweepResult, names []string, top int) {
	if top > len(sr.Ranked) {
		top = len(sr.Ranked)
	}
	fmt.Printf("top %d of %d combinations:\n", top, sr.Total)
	for i := 0; i < top; i++ {
		run := sr.Ranked[i]
		var parts []string
		for _, n := range names {
			parts = append(parts, fmt.Sprintf("%s=%g", n, run.Params[n]))
		}
		m := run.Result.Metrics
		fmt.Printf("%3d. %-40s return %8.2f%%  maxDD %6.2f%%  sharpe %6.3f  trades %3d\n",
			i+1, strings.Join(parts, " "), m.TotalReturnPct, m.MaxDrawdownPct, m.Sharpe, m.TotalTrades)
	}
}

func gridNames(grid backtest.ParamGrid) []string {
	names := make([]string, 0, len(grid))
	for n := range grid {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// parseGrid parses "name=v1,v2;name=v3,v4" into a ParamGrid.
func parseGrid(s string) backtest.ParamGrid {
	grid := backtest.ParamGrid{}
	for _, dim := range strings.Split(s, ";") {
		name, vals, ok := strings.Cut(strings.TrimSpace(dim), "=")
		if !ok {
			log.Fatalf("invalid -grid dimension %q, want name=v1,v2,...", dim)
		}
		for _, v := range strings.Split(vals, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				log.Fatalf("invalid -grid value %q in %q: %v", v, dim, err)
			}
			grid[name] = append(grid[name], f)
		}
		if len(grid[name]) == 0 {
			log.Fatalf("empty -grid dimension %q", name)
		}
	}
	return grid
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

func parseDate(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		log.Fatalf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d
}
