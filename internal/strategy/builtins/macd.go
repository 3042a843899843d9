package builtins

import (
	"fmt"

	"kepler/internal/domain"
	"kepler/internal/indicator"
	"kepler/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACD)(nil)

// MACD implements a trend-following strategy on the MACD oscillator. It buys
// when the MACD line crosses above its signal line and sells on the mirror
// crossing.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a MACD strategy with the given fast, slow, and signal EMA
// periods.
func NewMACD(fast, slow, signal int) (*MACD, error) {
	if fast < 1 {
		return nil, domain.NewValidationError("fastPeriod", "must be >= 1, got %d", fast)
	}
	if slow <= fast {
		return nil, domain.NewValidationError("slowPeriod", "must be greater than fastPeriod %d, got %d", fast, slow)
	}
	if signal < 1 {
		return nil, domain.NewValidationError("signalPeriod", "must be >= 1, got %d", signal)
	}
	return &MACD{fastPeriod: fast, slowPeriod: slow, signalPeriod: signal}, nil
}

// Name returns "macd".
func (s *MACD) Name() string {
	return "macd"
}

// Description summarizes the configured MACD rule.
func (s *MACD) Description() string {
	return fmt.Sprintf("MACD(%d,%d,%d): buy on MACD/signal golden cross, sell on dead cross",
		s.fastPeriod, s.slowPeriod, s.signalPeriod)
}

// MinDataPoints returns slow+signal-1: the signal line seed lands at index
// slow+signal-2 and the crossing test needs the prior bar's value as well.
func (s *MACD) MinDataPoints() int {
	return s.slowPeriod + s.signalPeriod - 1
}

// GenerateSignal detects MACD/signal line crossings at index i.
func (s *MACD) GenerateSignal(bars []domain.PriceBar, i int) domain.SignalType {
	if i < s.MinDataPoints() || i >= len(bars) {
		return domain.SignalHold
	}
	macd, signal := indicator.MACDSeries(strategy.Closes(bars, i), s.fastPeriod, s.slowPeriod, s.signalPeriod)

	switch {
	case crossesAbove(macd[i-1], signal[i-1], macd[i], signal[i]):
		return domain.SignalBuy
	case crossesBelow(macd[i-1], signal[i-1], macd[i], signal[i]):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
