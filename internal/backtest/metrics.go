package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/domain"
)

// TradingDaysPerYear is the annualization factor for Sharpe and Sortino.
const TradingDaysPerYear = 252

// ProfitFactorUndefined marks a profit factor with no losing trades to divide
// by. A real profit factor is never negative, so the marker is unambiguous.
const ProfitFactorUndefined = -1

// Metrics holds the scalar performance statistics of one run.
//
// Monetary values stay decimal; the ratio statistics are dimensionless and
// use float64 because they require square roots and fractional powers. Every
// ratio is zero-guarded: divisions that would be undefined yield 0 (or the
// documented ProfitFactorUndefined sentinel) rather than NaN or Inf.
type Metrics struct {
	TotalReturnPct float64
	CAGR           float64
	Sharpe         float64
	Sortino        float64
	Calmar         float64
	MaxDrawdownPct float64 // 0..100

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // 0..1
	ProfitFactor  float64
	Expectancy    decimal.Decimal // mean profit per trade

	MaxConsecWins   int
	MaxConsecLosses int
}

// Analyze computes performance metrics from the equity curve and the trade
// ledger, annotating each equity point with its drawdown from the running
// peak. The curve is modified in place and the monthly breakdown is returned
// alongside the metrics.
//
// Total return and CAGR are measured from initialCapital, not from the first
// equity point; the two differ when a position opens on the first bar and
// its entry costs have already been paid by the first close.
func Analyze(curve []domain.EquityPoint, ledger []domain.ClosedTrade, initialCapital decimal.Decimal, riskFreeRate float64) (Metrics, []domain.MonthlyPerformance) {
	var m Metrics
	if len(curve) == 0 {
		return m, nil
	}

	m.MaxDrawdownPct = annotateDrawdowns(curve)

	initial := initialCapital.InexactFloat64()
	if initial <= 0 {
		initial = curve[0].Value.InexactFloat64()
	}
	final := curve[len(curve)-1].Value.InexactFloat64()
	if initial > 0 {
		m.TotalReturnPct = (final - initial) / initial * 100
		m.CAGR = cagr(initial, final, curve[0].Date, curve[len(curve)-1].Date)
	}

	returns := dailyReturns(curve)
	m.Sharpe = sharpe(returns, riskFreeRate)
	m.Sortino = sortino(returns, riskFreeRate)
	if m.MaxDrawdownPct > 0 {
		m.Calmar = m.CAGR / (m.MaxDrawdownPct / 100)
	}

	m.tradeStats(ledger)
	return m, monthlyBreakdown(ledger)
}

// annotateDrawdowns fills DrawdownPct on every point from the running peak
// and returns the maximum drawdown in percent.
func annotateDrawdowns(curve []domain.EquityPoint) float64 {
	peak := curve[0].Value
	maxDD := 0.0
	for i := range curve {
		if curve[i].Value.GreaterThan(peak) {
			peak = curve[i].Value
		}
		dd := 0.0
		if peak.IsPositive() {
			dd = peak.Sub(curve[i].Value).Div(peak).InexactFloat64() * 100
		}
		curve[i].DrawdownPct = dd
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// cagr annualizes the total return over the calendar span of the run.
func cagr(initial, final float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}
	if initial <= 0 || final <= 0 {
		return 0
	}
	return math.Pow(final/initial, 365/days) - 1
}

func dailyReturns(curve []domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value.InexactFloat64()
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Value.InexactFloat64()/prev-1)
	}
	return out
}

func sharpe(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := meanOf(returns)
	sd := stddevOf(returns, mean)
	if sd == 0 {
		return 0
	}
	rfDaily := riskFreeRate / TradingDaysPerYear
	return (mean - rfDaily) / sd * math.Sqrt(TradingDaysPerYear)
}

// sortino is Sharpe with the denominator replaced by the deviation of the
// negative daily returns only.
func sortino(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var negatives []float64
	for _, r := range returns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	if len(negatives) == 0 {
		return 0
	}
	downside := stddevOf(negatives, meanOf(negatives))
	if downside == 0 {
		return 0
	}
	rfDaily := riskFreeRate / TradingDaysPerYear
	return (meanOf(returns) - rfDaily) / downside * math.Sqrt(TradingDaysPerYear)
}

func (m *Metrics) tradeStats(ledger []domain.ClosedTrade) {
	m.TotalTrades = len(ledger)
	if m.TotalTrades == 0 {
		m.Expectancy = decimal.Zero
		return
	}

	grossWin, grossLoss, total := decimal.Zero, decimal.Zero, decimal.Zero
	curWins, curLosses := 0, 0
	for _, t := range ledger {
		total = total.Add(t.Profit)
		if t.Winning() {
			m.WinningTrades++
			grossWin = grossWin.Add(t.Profit)
			curWins++
			curLosses = 0
		} else {
			m.LosingTrades++
			grossLoss = grossLoss.Add(t.Profit)
			curLosses++
			curWins = 0
		}
		if curWins > m.MaxConsecWins {
			m.MaxConsecWins = curWins
		}
		if curLosses > m.MaxConsecLosses {
			m.MaxConsecLosses = curLosses
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.Expectancy = total.Div(decimal.NewFromInt(int64(m.TotalTrades))).Round(domain.ReportScale)
	if grossLoss.IsNegative() {
		m.ProfitFactor = grossWin.Div(grossLoss.Abs()).InexactFloat64()
	} else if grossWin.IsPositive() {
		m.ProfitFactor = ProfitFactorUndefined
	}
}

// monthlyBreakdown groups closed trades by exit month, chronologically.
func monthlyBreakdown(ledger []domain.ClosedTrade) []domain.MonthlyPerformance {
	type key struct {
		year  int
		month time.Month
	}
	buckets := make(map[key]*domain.MonthlyPerformance)
	for _, t := range ledger {
		k := key{year: t.ExitDate.Year(), month: t.ExitDate.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &domain.MonthlyPerformance{Year: k.year, Month: k.month, Profit: decimal.Zero}
			buckets[k] = b
		}
		b.Profit = b.Profit.Add(t.Profit)
		b.Trades++
		if t.Winning() {
			b.Wins++
		}
	}

	out := make([]domain.MonthlyPerformance, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevOf is the population standard deviation around mean.
func stddevOf(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
