// Package builtins provides the built-in strategy implementations that ship
// with kepler: moving-average cross, RSI, MACD, Bollinger band, and momentum.
//
// All builtins share one crossing convention: a signal fires on the bar where
// the tracked value is at or beyond the reference on the prior bar and
// strictly past it on the current bar. Values that sit exactly on the
// reference for several bars therefore trigger at most once, when they
// finally move through it.
package builtins

import "math"

// crossesAbove reports a value moving up through a reference between two
// consecutive bars: at or below on the prior bar, strictly above on the
// current one.
func crossesAbove(prevValue, prevRef, curValue, curRef float64) bool {
	if hasNaN(prevValue, prevRef, curValue, curRef) {
		return false
	}
	return prevValue <= prevRef && curValue > curRef
}

// crossesBelow is the mirror of crossesAbove.
func crossesBelow(prevValue, prevRef, curValue, curRef float64) bool {
	if hasNaN(prevValue, prevRef, curValue, curRef) {
		return false
	}
	return prevValue >= prevRef && curValue < curRef
}

func hasNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
