package util

import "time"

// IsTradingDay reports whether d falls on a weekday. Exchange holidays are
// not modelled; the engine documents calendar gaps in its input series
// rather than patching them.
func IsTradingDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// TradingDaysBetween counts the weekdays strictly between a and b. It
// returns 0 when b is not after a.
func TradingDaysBetween(a, b time.Time) int {
	a = truncateDay(a)
	b = truncateDay(b)
	n := 0
	for d := a.AddDate(0, 0, 1); d.Before(b); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			n++
		}
	}
	return n
}

// CountTradingDays counts the weekdays in [start, end] inclusive.
func CountTradingDays(start, end time.Time) int {
	start = truncateDay(start)
	end = truncateDay(end)
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
