package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/domain"
)

func curveOf(values ...float64) []domain.EquityPoint {
	dates := weekdayDates(len(values))
	out := make([]domain.EquityPoint, len(values))
	for i, v := range values {
		out[i] = domain.EquityPoint{Date: dates[i], Value: decimal.NewFromFloat(v)}
	}
	return out
}

func tradeWithProfit(p float64, exit time.Time) domain.ClosedTrade {
	return domain.ClosedTrade{
		EntryDate:  exit.AddDate(0, 0, -1),
		ExitDate:   exit,
		Profit:     decimal.NewFromFloat(p),
		ExitReason: domain.ExitSignal,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnnotateDrawdowns(t *testing.T) {
	curve := curveOf(100, 120, 90, 110)

	maxDD := annotateDrawdowns(curve)
	if !almostEqual(maxDD, 25) {
		t.Errorf("max drawdown = %f, want 25", maxDD)
	}
	wantDD := []float64{0, 0, 25, 100 * (120 - 110) / 120.0}
	for i, want := range wantDD {
		if !almostEqual(curve[i].DrawdownPct, want) {
			t.Errorf("curve[%d].DrawdownPct = %f, want %f", i, curve[i].DrawdownPct, want)
		}
	}
}

func TestAnalyzeDrawdownBounds(t *testing.T) {
	curve := curveOf(100, 50, 200, 10, 300)

	m, _ := Analyze(curve, nil, decimal.NewFromInt(100), 0)
	if m.MaxDrawdownPct < 0 || m.MaxDrawdownPct > 100 {
		t.Errorf("max drawdown = %f, want within [0, 100]", m.MaxDrawdownPct)
	}
}

func TestAnalyzeTotalReturnAndCAGR(t *testing.T) {
	curve := []domain.EquityPoint{
		{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Value: decimal.NewFromInt(100)},
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: decimal.NewFromInt(121)},
	}

	m, _ := Analyze(curve, nil, decimal.NewFromInt(100), 0)
	if !almostEqual(m.TotalReturnPct, 21) {
		t.Errorf("total return = %f, want 21", m.TotalReturnPct)
	}
	// Exactly one 365-day year, so CAGR equals the simple return.
	if math.Abs(m.CAGR-0.21) > 1e-9 {
		t.Errorf("CAGR = %f, want 0.21", m.CAGR)
	}
}

func TestAnalyzeMeasuresReturnFromInitialCapital(t *testing.T) {
	// An entry on the first bar pays slippage and commission before the
	// first equity point is recorded, so on a flat series the run loses
	// money relative to the starting capital even though the curve itself
	// never moves.
	bars := flatBars([]float64{100, 100, 100, 100})
	strat := &scriptStrategy{signals: map[int]domain.SignalType{0: domain.SignalBuy}}

	res, err := Run(bars, strat, baseRequest(bars))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Metrics.TotalTrades != 1 {
		t.Fatalf("got %d trades, want 1", res.Metrics.TotalTrades)
	}
	if res.Metrics.TotalReturnPct >= 0 {
		t.Errorf("TotalReturnPct = %f, want < 0 (entry costs paid on bar 0)", res.Metrics.TotalReturnPct)
	}
	if res.Metrics.CAGR >= 0 {
		t.Errorf("CAGR = %f, want < 0", res.Metrics.CAGR)
	}
}

func TestAnalyzeFlatCurveRatiosAreZero(t *testing.T) {
	curve := curveOf(100, 100, 100, 100)

	m, _ := Analyze(curve, nil, decimal.NewFromInt(100), 0.05)
	if m.Sharpe != 0 {
		t.Errorf("Sharpe = %f, want 0 for zero-variance returns", m.Sharpe)
	}
	if m.Sortino != 0 {
		t.Errorf("Sortino = %f, want 0 with no negative returns", m.Sortino)
	}
	if m.Calmar != 0 {
		t.Errorf("Calmar = %f, want 0 with zero drawdown", m.Calmar)
	}
	if m.MaxDrawdownPct != 0 {
		t.Errorf("max drawdown = %f, want 0", m.MaxDrawdownPct)
	}
}

func TestAnalyzeEmptyCurve(t *testing.T) {
	m, monthly := Analyze(nil, nil, decimal.Zero, 0)
	if m.TotalTrades != 0 || m.TotalReturnPct != 0 {
		t.Errorf("empty curve produced non-zero metrics: %+v", m)
	}
	if monthly != nil {
		t.Errorf("empty curve produced monthly buckets: %v", monthly)
	}
}

func TestTradeStats(t *testing.T) {
	dates := weekdayDates(7)
	profits := []float64{10, 5, -3, 2, -1, -4, 8}
	ledger := make([]domain.ClosedTrade, len(profits))
	for i, p := range profits {
		ledger[i] = tradeWithProfit(p, dates[i])
	}

	var m Metrics
	m.tradeStats(ledger)

	if m.TotalTrades != 7 {
		t.Errorf("TotalTrades = %d, want 7", m.TotalTrades)
	}
	if m.WinningTrades != 4 || m.LosingTrades != 3 {
		t.Errorf("wins/losses = %d/%d, want 4/3", m.WinningTrades, m.LosingTrades)
	}
	if !almostEqual(m.WinRate, 4.0/7.0) {
		t.Errorf("WinRate = %f, want %f", m.WinRate, 4.0/7.0)
	}
	// Gross win 25, gross loss 8.
	if !almostEqual(m.ProfitFactor, 25.0/8.0) {
		t.Errorf("ProfitFactor = %f, want %f", m.ProfitFactor, 25.0/8.0)
	}
	// Total 17 over 7 trades, rounded to cents.
	if !m.Expectancy.Equal(decimal.RequireFromString("2.43")) {
		t.Errorf("Expectancy = %s, want 2.43", m.Expectancy)
	}
	if m.MaxConsecWins != 2 {
		t.Errorf("MaxConsecWins = %d, want 2", m.MaxConsecWins)
	}
	if m.MaxConsecLosses != 2 {
		t.Errorf("MaxConsecLosses = %d, want 2", m.MaxConsecLosses)
	}
}

func TestTradeStatsProfitFactorSentinel(t *testing.T) {
	dates := weekdayDates(2)

	var wins Metrics
	wins.tradeStats([]domain.ClosedTrade{
		tradeWithProfit(5, dates[0]),
		tradeWithProfit(3, dates[1]),
	})
	if wins.ProfitFactor != ProfitFactorUndefined {
		t.Errorf("all-wins ProfitFactor = %f, want sentinel %d", wins.ProfitFactor, ProfitFactorUndefined)
	}

	var losses Metrics
	losses.tradeStats([]domain.ClosedTrade{
		tradeWithProfit(-5, dates[0]),
		tradeWithProfit(-3, dates[1]),
	})
	if losses.ProfitFactor != 0 {
		t.Errorf("all-losses ProfitFactor = %f, want 0", losses.ProfitFactor)
	}
}

func TestTradeStatsZeroProfitIsLoss(t *testing.T) {
	// A break-even trade is not a win; commission-free flats count against
	// the win rate.
	var m Metrics
	m.tradeStats([]domain.ClosedTrade{tradeWithProfit(0, weekdayDates(1)[0])})
	if m.WinningTrades != 0 || m.LosingTrades != 1 {
		t.Errorf("wins/losses = %d/%d, want 0/1", m.WinningTrades, m.LosingTrades)
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	ledger := []domain.ClosedTrade{
		tradeWithProfit(10, feb),
		tradeWithProfit(-4, jan),
		tradeWithProfit(6, jan),
	}

	monthly := monthlyBreakdown(ledger)
	if len(monthly) != 2 {
		t.Fatalf("got %d buckets, want 2", len(monthly))
	}
	// Chronological order regardless of ledger order.
	if monthly[0].Month != time.January || monthly[1].Month != time.February {
		t.Errorf("bucket order = %s, %s; want January, February", monthly[0].Month, monthly[1].Month)
	}
	if !monthly[0].Profit.Equal(decimal.NewFromInt(2)) {
		t.Errorf("January profit = %s, want 2", monthly[0].Profit)
	}
	if monthly[0].Trades != 2 || monthly[0].Wins != 1 {
		t.Errorf("January trades/wins = %d/%d, want 2/1", monthly[0].Trades, monthly[0].Wins)
	}
	if monthly[1].Trades != 1 || monthly[1].Wins != 1 {
		t.Errorf("February trades/wins = %d/%d, want 1/1", monthly[1].Trades, monthly[1].Wins)
	}
}

func TestSharpeSign(t *testing.T) {
	up := []float64{0.01, 0.02, 0.01, 0.03}
	if s := sharpe(up, 0); s <= 0 {
		t.Errorf("sharpe of rising returns = %f, want > 0", s)
	}
	down := []float64{-0.01, -0.02, -0.01, -0.03}
	if s := sharpe(down, 0); s >= 0 {
		t.Errorf("sharpe of falling returns = %f, want < 0", s)
	}
}

func TestSortino(t *testing.T) {
	// Positive mean with varied losses: finite and positive.
	returns := []float64{0.02, -0.01, 0.03, -0.02}
	s := sortino(returns, 0)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		t.Fatalf("sortino = %f, want finite", s)
	}
	if s <= 0 {
		t.Errorf("sortino = %f, want > 0 for positive-mean returns", s)
	}

	// Identical losses have zero downside deviation: guarded to 0.
	if s := sortino([]float64{0.01, -0.01, 0.02, -0.01}, 0); s != 0 {
		t.Errorf("sortino with zero downside deviation = %f, want 0", s)
	}
}
