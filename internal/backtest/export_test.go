package backtest

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"kepler/internal/domain"
)

func TestExportCSV(t *testing.T) {
	bars := flatBars(trendBars(60))
	strat := &scriptStrategy{signals: map[int]domain.SignalType{
		2:  domain.SignalBuy,
		10: domain.SignalSell,
	}}
	res, err := Run(bars, strat, baseRequest(bars))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := t.TempDir()
	if err := ExportCSV(res, dir); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	trades := readCSV(t, filepath.Join(dir, "TEST_script_trades.csv"))
	if len(trades) != 1+res.Metrics.TotalTrades {
		t.Errorf("trades csv has %d rows, want header + %d", len(trades), res.Metrics.TotalTrades)
	}
	if trades[0][0] != "entry_date" {
		t.Errorf("trades header = %v", trades[0])
	}

	equity := readCSV(t, filepath.Join(dir, "TEST_script_equity.csv"))
	if len(equity) != 1+len(res.EquityCurve) {
		t.Errorf("equity csv has %d rows, want header + %d", len(equity), len(res.EquityCurve))
	}
}

func TestExportSweepCSV(t *testing.T) {
	bars := flatBars(trendBars(60))
	req := baseRequest(bars)
	req.StrategyType = "ma-cross"
	grid := ParamGrid{"shortPeriod": {3, 5}, "longPeriod": {10}}

	sr, err := Sweep(context.Background(), bars, req, grid, SweepOptions{})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sweep.csv")
	if err := ExportSweepCSV(sr, []string{"shortPeriod", "longPeriod"}, path); err != nil {
		t.Fatalf("ExportSweepCSV: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 1+len(sr.Ranked) {
		t.Errorf("sweep csv has %d rows, want header + %d", len(rows), len(sr.Ranked))
	}
	if rows[0][1] != "shortPeriod" || rows[0][2] != "longPeriod" {
		t.Errorf("sweep header = %v", rows[0])
	}
	if len(rows) > 1 && rows[1][0] != "1" {
		t.Errorf("first ranked row rank = %s, want 1", rows[1][0])
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}
