package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/domain"
	"kepler/internal/store"
	"kepler/internal/strategy"
	"kepler/internal/strategy/builtins"
)

// Result is the immutable outcome of one backtest run: scalar metrics, the
// equity and drawdown curves, the trade ledger, and the monthly breakdown.
type Result struct {
	Symbol       string
	StrategyType string
	StrategyDesc string
	StartDate    time.Time
	EndDate      time.Time

	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal

	Metrics Metrics

	EquityCurve []domain.EquityPoint
	Trades      []domain.ClosedTrade
	Monthly     []domain.MonthlyPerformance
	Gaps        []Gap
}

// Empty reports whether the run produced no trades and no equity curve,
// which happens when the series is shorter than the strategy's minimum data
// requirement. This is a benign, documented outcome, not an error.
func (r *Result) Empty() bool {
	return len(r.EquityCurve) == 0 && len(r.Trades) == 0
}

// Run executes a single backtest of strat over bars. Bars outside the
// request's date range are ignored. The call is pure: no I/O, no shared
// state, and identical inputs always produce an identical Result.
func Run(bars []domain.PriceBar, strat strategy.Strategy, req Request) (*Result, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	gaps, err := ValidateSeries(bars)
	if err != nil {
		return nil, err
	}
	bars = clampSeries(bars, req.StartDate, req.EndDate)

	res := &Result{
		Symbol:         req.Symbol,
		StrategyType:   req.StrategyType,
		StrategyDesc:   strat.Description(),
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		InitialCapital: req.InitialCapital,
		FinalCapital:   req.InitialCapital,
		Gaps:           gaps,
	}

	sim := &simulator{bars: bars, strat: strat, req: req}
	st, curve := sim.run()
	if len(curve) == 0 {
		// Series shorter than the strategy minimum: benign empty result.
		return res, nil
	}

	res.EquityCurve = curve
	res.Trades = st.ledger
	res.FinalCapital = curve[len(curve)-1].Value
	res.Metrics, res.Monthly = Analyze(curve, st.ledger, req.InitialCapital, req.RiskFreeRate)
	return res, nil
}

// Backtester loads price series from a BarStore and executes backtests for
// the built-in strategies.
type Backtester struct {
	store  store.BarStore
	logger *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given store.
func NewBacktester(barStore store.BarStore, logger *slog.Logger) *Backtester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{store: barStore, logger: logger}
}

// Run validates the request, builds the requested strategy, loads the price
// series for the request's symbol and date range, and executes the backtest.
func (bt *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	strat, err := builtins.New(req.StrategyType, req.Params)
	if err != nil {
		return nil, err
	}

	bars, err := bt.store.ReadBars(ctx, req.Symbol, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("read bars for %s: %w", req.Symbol, err)
	}

	res, err := Run(bars, strat, req)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		bt.logger.Warn("series shorter than strategy minimum, empty result",
			"symbol", req.Symbol, "strategy", req.StrategyType,
			"bars", len(bars), "min_data_points", strat.MinDataPoints())
		return res, nil
	}

	bt.logger.Info("backtest complete",
		"symbol", req.Symbol, "strategy", req.StrategyType,
		"trades", res.Metrics.TotalTrades,
		"final_capital", res.FinalCapital.String(),
		"return_pct", res.Metrics.TotalReturnPct,
		"max_drawdown_pct", res.Metrics.MaxDrawdownPct,
		"gaps", len(res.Gaps))
	return res, nil
}
