package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExportCSV writes the run's trade ledger and equity curve as CSV files into
// dir, creating it if needed. File names are derived from the symbol and
// strategy so several runs can share a directory.
func ExportCSV(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := fmt.Sprintf("%s_%s", res.Symbol, res.StrategyType)

	if err := writeTradesCSV(filepath.Join(dir, base+"_trades.csv"), res); err != nil {
		return fmt.Errorf("writing trades csv: %w", err)
	}
	if err := writeEquityCSV(filepath.Join(dir, base+"_equity.csv"), res); err != nil {
		return fmt.Errorf("writing equity csv: %w", err)
	}
	return nil
}

func writeTradesCSV(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"entry_date", "exit_date", "entry_price", "exit_price", "quantity",
		"profit", "profit_pct", "holding_days", "exit_reason",
	}); err != nil {
		return err
	}
	for _, t := range res.Trades {
		if err := w.Write([]string{
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Quantity.String(),
			t.Profit.String(),
			t.ProfitPct.String(),
			strconv.Itoa(t.HoldingDays),
			string(t.ExitReason),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeEquityCSV(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "equity", "drawdown_pct"}); err != nil {
		return err
	}
	for _, p := range res.EquityCurve {
		if err := w.Write([]string{
			p.Date.Format("2006-01-02"),
			p.Value.String(),
			strconv.FormatFloat(p.DrawdownPct, 'f', 4, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportSweepCSV writes the ranked sweep outcomes to one CSV file at path.
func ExportSweepCSV(sr *SweepResult, paramNames []string, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := []string{"rank"}
	header = append(header, paramNames...)
	header = append(header,
		"total_return_pct", "cagr", "sharpe", "sortino",
		"max_drawdown_pct", "trades", "win_rate", "profit_factor")

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, run := range sr.Ranked {
		row := []string{strconv.Itoa(i + 1)}
		for _, name := range paramNames {
			row = append(row, strconv.FormatFloat(run.Params[name], 'f', -1, 64))
		}
		m := run.Result.Metrics
		row = append(row,
			strconv.FormatFloat(m.TotalReturnPct, 'f', 4, 64),
			strconv.FormatFloat(m.CAGR, 'f', 6, 64),
			strconv.FormatFloat(m.Sharpe, 'f', 4, 64),
			strconv.FormatFloat(m.Sortino, 'f', 4, 64),
			strconv.FormatFloat(m.MaxDrawdownPct, 'f', 4, 64),
			strconv.Itoa(m.TotalTrades),
			strconv.FormatFloat(m.WinRate, 'f', 4, 64),
			strconv.FormatFloat(m.ProfitFactor, 'f', 4, 64),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
