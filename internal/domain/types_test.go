package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestClosedTradeWinning(t *testing.T) {
	cases := []struct {
		profit string
		want   bool
	}{
		{"30", true},
		{"0.01", true},
		// Break-even is not a win: it counts against the win rate.
		{"0", false},
		{"-0.01", false},
		{"-30", false},
	}
	for _, tc := range cases {
		trade := ClosedTrade{Profit: decimal.RequireFromString(tc.profit)}
		if got := trade.Winning(); got != tc.want {
			t.Errorf("Winning() with profit %s = %v, want %v", tc.profit, got, tc.want)
		}
	}
}

func TestSignalAndExitReasonValues(t *testing.T) {
	// The string values are the wire format of CSV exports and logs.
	if SignalBuy != "buy" || SignalSell != "sell" || SignalHold != "hold" {
		t.Error("SignalType constants have unexpected values")
	}
	for reason, want := range map[ExitReason]string{
		ExitSignal:       "signal",
		ExitStopLoss:     "stop-loss",
		ExitTakeProfit:   "take-profit",
		ExitTrailingStop: "trailing-stop",
		ExitEndOfData:    "end-of-data",
	} {
		if string(reason) != want {
			t.Errorf("ExitReason = %q, want %q", reason, want)
		}
	}
}

func TestPositionMarketValue(t *testing.T) {
	p := Position{
		EntryPrice: decimal.RequireFromString("100"),
		Quantity:   decimal.RequireFromString("2.5"),
	}
	got := p.MarketValue(decimal.RequireFromString("104.2"))
	want := decimal.RequireFromString("260.5")
	if !got.Equal(want) {
		t.Errorf("MarketValue = %s, want %s", got, want)
	}

	// Rounding at MoneyScale keeps long quantities from accumulating digits.
	p.Quantity = decimal.RequireFromString("0.333333333333")
	got = p.MarketValue(decimal.RequireFromString("3"))
	if got.Exponent() < -int32(MoneyScale) {
		t.Errorf("MarketValue = %s, want at most %d decimal places", got, MoneyScale)
	}
}
