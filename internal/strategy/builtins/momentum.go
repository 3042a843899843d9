package builtins

import (
	"fmt"

	"kepler/internal/domain"
	"kepler/internal/indicator"
	"kepler/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Momentum)(nil)

// Momentum implements a rate-of-change strategy on the N-day percentage
// return. It buys when the return crosses above the entry threshold and sells
// when it crosses below the exit threshold.
type Momentum struct {
	period         int
	entryThreshold float64 // percent
	exitThreshold  float64 // percent
}

// NewMomentum creates a Momentum strategy with the given lookback period and
// entry/exit thresholds expressed in percent.
func NewMomentum(period int, entry, exit float64) (*Momentum, error) {
	if period < 1 {
		return nil, domain.NewValidationError("period", "must be >= 1, got %d", period)
	}
	if entry <= exit {
		return nil, domain.NewValidationError("entryThreshold", "must be above exitThreshold %g, got %g", exit, entry)
	}
	return &Momentum{period: period, entryThreshold: entry, exitThreshold: exit}, nil
}

// Name returns "momentum".
func (s *Momentum) Name() string {
	return "momentum"
}

// Description summarizes the configured momentum rule.
func (s *Momentum) Description() string {
	return fmt.Sprintf("Momentum(%d): buy when %d-day return crosses above %g%%, sell below %g%%",
		s.period, s.period, s.entryThreshold, s.exitThreshold)
}

// MinDataPoints returns period+1: the return is first defined at index
// period, and the crossing test needs the prior bar's value as well.
func (s *Momentum) MinDataPoints() int {
	return s.period + 1
}

// GenerateSignal detects threshold crossings of the N-day return at index i.
func (s *Momentum) GenerateSignal(bars []domain.PriceBar, i int) domain.SignalType {
	if i < s.MinDataPoints() || i >= len(bars) {
		return domain.SignalHold
	}
	closes := strategy.Closes(bars, i)
	prev := indicator.Momentum(closes, i-1, s.period)
	cur := indicator.Momentum(closes, i, s.period)

	switch {
	case crossesAbove(prev, s.entryThreshold, cur, s.entryThreshold):
		return domain.SignalBuy
	case crossesBelow(prev, s.exitThreshold, cur, s.exitThreshold):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
