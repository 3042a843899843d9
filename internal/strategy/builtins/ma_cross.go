package builtins

import (
	"fmt"

	"kepler/internal/domain"
	"kepler/internal/indicator"
	"kepler/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MACross)(nil)

// MACross implements a moving average crossover strategy. It generates a buy
// signal when the short-period average crosses above the long-period average
// (golden cross) and a sell signal on the mirror crossing (dead cross). The
// averages are simple by default; UseEMA switches both to exponential.
type MACross struct {
	shortPeriod int
	longPeriod  int
	useEMA      bool
}

// NewMACross creates a MACross strategy with the specified short and long
// moving average periods.
func NewMACross(short, long int, useEMA bool) (*MACross, error) {
	if short < 1 {
		return nil, domain.NewValidationError("shortPeriod", "must be >= 1, got %d", short)
	}
	if long <= short {
		return nil, domain.NewValidationError("longPeriod", "must be greater than shortPeriod %d, got %d", short, long)
	}
	return &MACross{shortPeriod: short, longPeriod: long, useEMA: useEMA}, nil
}

// Name returns "ma-cross".
func (s *MACross) Name() string {
	return "ma-cross"
}

// Description summarizes the configured crossover rule.
func (s *MACross) Description() string {
	kind := "SMA"
	if s.useEMA {
		kind = "EMA"
	}
	return fmt.Sprintf("%s(%d)/%s(%d) crossover: buy on golden cross, sell on dead cross",
		kind, s.shortPeriod, kind, s.longPeriod)
}

// MinDataPoints returns the long period: both averages and their prior-bar
// values are defined from that index on.
func (s *MACross) MinDataPoints() int {
	return s.longPeriod
}

// GenerateSignal detects golden and dead crosses at index i.
func (s *MACross) GenerateSignal(bars []domain.PriceBar, i int) domain.SignalType {
	if i < s.MinDataPoints() || i >= len(bars) {
		return domain.SignalHold
	}
	closes := strategy.Closes(bars, i)

	var prevShort, prevLong, curShort, curLong float64
	if s.useEMA {
		short := indicator.EMASeries(closes, s.shortPeriod)
		long := indicator.EMASeries(closes, s.longPeriod)
		prevShort, prevLong = short[i-1], long[i-1]
		curShort, curLong = short[i], long[i]
	} else {
		prevShort = indicator.SMA(closes, i-1, s.shortPeriod)
		prevLong = indicator.SMA(closes, i-1, s.longPeriod)
		curShort = indicator.SMA(closes, i, s.shortPeriod)
		curLong = indicator.SMA(closes, i, s.longPeriod)
	}

	switch {
	case crossesAbove(prevShort, prevLong, curShort, curLong):
		return domain.SignalBuy
	case crossesBelow(prevShort, prevLong, curShort, curLong):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
