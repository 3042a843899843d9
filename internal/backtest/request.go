// Package backtest implements the kepler simulation engine: it replays a
// historical price series through a strategy, enforces stop-loss, take-profit
// and trailing-stop risk rules, and produces a performance report.
//
// A single run is synchronous and fully deterministic: identical inputs
// always produce an identical Result. The engine performs no I/O; the price
// series must be fully materialized before the run starts.
package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/config"
	"kepler/internal/domain"
)

// Default request parameters, applied by ApplyDefaults when the zero value
// is present.
var (
	DefaultPositionSizePct = decimal.NewFromInt(100)
	DefaultCommissionRate  = decimal.RequireFromString("0.00015") // 0.015%
	DefaultSlippageRate    = decimal.RequireFromString("0.001")   // 0.1%
)

// DefaultMaxPositions is the documented default for concurrent open lots.
const DefaultMaxPositions = 1

// Request configures one backtest run.
//
// StopLossPct, TakeProfitPct, and TrailingStopPct are percentages of the
// entry price (or of the high-water mark for the trailing stop); a zero
// value disables the corresponding risk order.
type Request struct {
	Symbol       string
	StrategyType string
	Params       map[string]float64

	StartDate time.Time
	EndDate   time.Time

	InitialCapital  decimal.Decimal
	PositionSizePct decimal.Decimal // percent of available cash per entry, default 100
	MaxPositions    int             // maximum concurrent open lots, default 1
	CommissionRate  decimal.Decimal // fraction, default 0.00015
	SlippageRate    decimal.Decimal // fraction, default 0.001

	StopLossPct     decimal.Decimal // percent, 0 = disabled
	TakeProfitPct   decimal.Decimal // percent, 0 = disabled
	TrailingStopPct decimal.Decimal // percent, 0 = disabled

	RiskFreeRate float64 // annualized, used by Sharpe/Sortino, default 0
}

// ApplyDefaults fills zero-valued optional fields with their documented
// defaults. It does not touch required fields (symbol, dates, capital).
func (r *Request) ApplyDefaults() {
	if r.PositionSizePct.IsZero() {
		r.PositionSizePct = DefaultPositionSizePct
	}
	if r.MaxPositions == 0 {
		r.MaxPositions = DefaultMaxPositions
	}
	if r.CommissionRate.IsZero() {
		r.CommissionRate = DefaultCommissionRate
	}
	if r.SlippageRate.IsZero() {
		r.SlippageRate = DefaultSlippageRate
	}
}

// ApplyConfig fills unset optional fields from the configuration file. It
// runs before ApplyDefaults, so the precedence is caller value, then config
// value, then built-in default.
func (r *Request) ApplyConfig(cfg config.BacktestConfig) error {
	if r.InitialCapital.IsZero() && cfg.InitialCapital != "" {
		v, err := decimal.NewFromString(cfg.InitialCapital)
		if err != nil {
			return fmt.Errorf("config backtest.initial_capital %q: %w", cfg.InitialCapital, err)
		}
		r.InitialCapital = v
	}
	if r.PositionSizePct.IsZero() && cfg.PositionSizePct > 0 {
		r.PositionSizePct = decimal.NewFromFloat(cfg.PositionSizePct)
	}
	if r.MaxPositions == 0 && cfg.MaxPositions > 0 {
		r.MaxPositions = cfg.MaxPositions
	}
	if r.CommissionRate.IsZero() && cfg.CommissionRate != "" {
		v, err := decimal.NewFromString(cfg.CommissionRate)
		if err != nil {
			return fmt.Errorf("config backtest.commission_rate %q: %w", cfg.CommissionRate, err)
		}
		r.CommissionRate = v
	}
	if r.SlippageRate.IsZero() && cfg.SlippageRate != "" {
		v, err := decimal.NewFromString(cfg.SlippageRate)
		if err != nil {
			return fmt.Errorf("config backtest.slippage_rate %q: %w", cfg.SlippageRate, err)
		}
		r.SlippageRate = v
	}
	if r.RiskFreeRate == 0 {
		r.RiskFreeRate = cfg.RiskFreeRate
	}
	return nil
}

// Validate checks the request after defaults have been applied. It returns a
// *domain.ValidationError describing the first offending field.
func (r *Request) Validate() error {
	if r.Symbol == "" {
		return domain.NewValidationError("symbol", "must not be empty")
	}
	if r.StrategyType == "" {
		return domain.NewValidationError("strategy", "must not be empty")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return domain.NewValidationError("dates", "start and end dates are required")
	}
	if r.StartDate.After(r.EndDate) {
		return domain.NewValidationError("startDate", "must not be after endDate")
	}
	if !r.InitialCapital.IsPositive() {
		return domain.NewValidationError("initialCapital", "must be > 0, got %s", r.InitialCapital)
	}
	if !r.PositionSizePct.IsPositive() || r.PositionSizePct.GreaterThan(decimal.NewFromInt(100)) {
		return domain.NewValidationError("positionSizePct", "must be in (0, 100], got %s", r.PositionSizePct)
	}
	if r.MaxPositions < 1 {
		return domain.NewValidationError("maxPositions", "must be >= 1, got %d", r.MaxPositions)
	}
	if r.CommissionRate.IsNegative() {
		return domain.NewValidationError("commissionRate", "must not be negative, got %s", r.CommissionRate)
	}
	if r.SlippageRate.IsNegative() {
		return domain.NewValidationError("slippageRate", "must not be negative, got %s", r.SlippageRate)
	}
	// A stop 100% or more below the entry (or high-water mark) can never
	// trigger on a positive price; take-profit has no upper bound.
	for name, pct := range map[string]decimal.Decimal{
		"stopLossPct":     r.StopLossPct,
		"trailingStopPct": r.TrailingStopPct,
	} {
		if pct.IsNegative() || pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return domain.NewValidationError(name, "must be in [0, 100), got %s", pct)
		}
	}
	if r.TakeProfitPct.IsNegative() {
		return domain.NewValidationError("takeProfitPct", "must not be negative, got %s", r.TakeProfitPct)
	}
	return nil
}
