package backtest

import (
	"fmt"
	"time"

	"kepler/internal/domain"
	"kepler/internal/util"
)

// Gap records trading days missing between two consecutive bars of a series.
// Gaps are documented, never silently patched: the simulation simply does not
// observe the missing days.
type Gap struct {
	Before time.Time // last bar before the gap
	After  time.Time // first bar after the gap
	Days   int       // trading days missing in between
}

func (g Gap) String() string {
	return fmt.Sprintf("%d trading day(s) missing between %s and %s",
		g.Days, g.Before.Format("2006-01-02"), g.After.Format("2006-01-02"))
}

// ValidateSeries checks that bars are strictly ascending by date with no
// duplicates, and reports any trading-day gaps between consecutive bars.
// Weekends are not gaps.
func ValidateSeries(bars []domain.PriceBar) ([]Gap, error) {
	var gaps []Gap
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Date, bars[i].Date
		if !cur.After(prev) {
			if cur.Equal(prev) {
				return nil, fmt.Errorf("series: duplicate date %s at index %d", cur.Format("2006-01-02"), i)
			}
			return nil, fmt.Errorf("series: dates out of order at index %d: %s before %s",
				i, cur.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
		if missing := util.TradingDaysBetween(prev, cur); missing > 0 {
			gaps = append(gaps, Gap{Before: prev, After: cur, Days: missing})
		}
	}
	return gaps, nil
}

// clampSeries returns the bars whose dates fall within [start, end].
// The input is assumed ascending, so the result is a contiguous sub-slice.
func clampSeries(bars []domain.PriceBar, start, end time.Time) []domain.PriceBar {
	lo := 0
	for lo < len(bars) && bars[lo].Date.Before(start) {
		lo++
	}
	hi := len(bars)
	for hi > lo && bars[hi-1].Date.After(end) {
		hi--
	}
	return bars[lo:hi]
}
