package builtins

import (
	"fmt"

	"kepler/internal/domain"
	"kepler/internal/indicator"
	"kepler/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BollingerBand)(nil)

// BollingerBand implements a band-bounce strategy. The middle band is the
// period SMA of closes and the outer bands sit multiplier standard deviations
// away. A close recovering up through the lower band is a buy; a close
// rejected down through the upper band is a sell.
type BollingerBand struct {
	period     int
	multiplier float64
}

// NewBollingerBand creates a BollingerBand strategy with the given SMA period
// and standard deviation multiplier.
func NewBollingerBand(period int, multiplier float64) (*BollingerBand, error) {
	if period < 2 {
		return nil, domain.NewValidationError("period", "must be >= 2, got %d", period)
	}
	if multiplier <= 0 {
		return nil, domain.NewValidationError("stdDevMultiplier", "must be > 0, got %g", multiplier)
	}
	return &BollingerBand{period: period, multiplier: multiplier}, nil
}

// Name returns "bollinger".
func (s *BollingerBand) Name() string {
	return "bollinger"
}

// Description summarizes the configured band rule.
func (s *BollingerBand) Description() string {
	return fmt.Sprintf("Bollinger(%d, %.1fσ): buy on lower-band bounce, sell on upper-band rejection",
		s.period, s.multiplier)
}

// MinDataPoints returns the period: the bands and their prior-bar values are
// defined from that index on.
func (s *BollingerBand) MinDataPoints() int {
	return s.period
}

// GenerateSignal detects lower-band bounces and upper-band rejections at
// index i.
func (s *BollingerBand) GenerateSignal(bars []domain.PriceBar, i int) domain.SignalType {
	if i < s.MinDataPoints() || i >= len(bars) {
		return domain.SignalHold
	}
	closes := strategy.Closes(bars, i)

	prevMid := indicator.SMA(closes, i-1, s.period)
	prevDev := indicator.StdDev(closes, i-1, s.period)
	curMid := indicator.SMA(closes, i, s.period)
	curDev := indicator.StdDev(closes, i, s.period)

	prevLower := prevMid - s.multiplier*prevDev
	prevUpper := prevMid + s.multiplier*prevDev
	curLower := curMid - s.multiplier*curDev
	curUpper := curMid + s.multiplier*curDev

	switch {
	case crossesAbove(closes[i-1], prevLower, closes[i], curLower):
		return domain.SignalBuy
	case crossesBelow(closes[i-1], prevUpper, closes[i], curUpper):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
