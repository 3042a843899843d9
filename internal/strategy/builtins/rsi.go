package builtins

import (
	"fmt"

	"kepler/internal/domain"
	"kepler/internal/indicator"
	"kepler/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSI)(nil)

// RSI implements a mean-reversion strategy on the Wilder relative strength
// index. It buys when the RSI crosses up through the oversold level and sells
// when it crosses down through the overbought level.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSI creates an RSI strategy with the given lookback period and
// oversold/overbought levels (0..100).
func NewRSI(period int, oversold, overbought float64) (*RSI, error) {
	if period < 2 {
		return nil, domain.NewValidationError("period", "must be >= 2, got %d", period)
	}
	if oversold <= 0 || oversold >= 100 {
		return nil, domain.NewValidationError("oversoldLevel", "must be in (0, 100), got %g", oversold)
	}
	if overbought <= 0 || overbought >= 100 {
		return nil, domain.NewValidationError("overboughtLevel", "must be in (0, 100), got %g", overbought)
	}
	if oversold >= overbought {
		return nil, domain.NewValidationError("oversoldLevel", "must be below overboughtLevel %g, got %g", overbought, oversold)
	}
	return &RSI{period: period, oversold: oversold, overbought: overbought}, nil
}

// Name returns "rsi".
func (s *RSI) Name() string {
	return "rsi"
}

// Description summarizes the configured RSI rule.
func (s *RSI) Description() string {
	return fmt.Sprintf("RSI(%d): buy crossing up through %g, sell crossing down through %g",
		s.period, s.oversold, s.overbought)
}

// MinDataPoints returns period+1: the RSI is first defined at index period,
// and the crossing test needs the prior bar's value as well.
func (s *RSI) MinDataPoints() int {
	return s.period + 1
}

// GenerateSignal detects oversold recoveries and overbought rejections at
// index i.
func (s *RSI) GenerateSignal(bars []domain.PriceBar, i int) domain.SignalType {
	if i < s.MinDataPoints() || i >= len(bars) {
		return domain.SignalHold
	}
	rsi := indicator.RSISeries(strategy.Closes(bars, i), s.period)
	prev, cur := rsi[i-1], rsi[i]

	switch {
	case crossesAbove(prev, s.oversold, cur, s.oversold):
		return domain.SignalBuy
	case crossesBelow(prev, s.overbought, cur, s.overbought):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
