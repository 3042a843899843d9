// Package domain defines the core value types shared across the kepler
// backtesting engine: price bars, signals, positions, closed trades, and
// equity curve points. Monetary fields use decimal arithmetic throughout so
// that simulated fills and P&L do not accumulate binary floating point drift.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places carried by intermediate price,
// cash, and quantity computations. Values are rounded half-up at this scale.
const MoneyScale = 8

// ReportScale is the number of decimal places used for reported P&L values.
const ReportScale = 2

// PriceBar is a single daily OHLCV observation. Bars are immutable and a
// series is always ordered ascending by date with no duplicate dates.
type PriceBar struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// SignalType is the decision a strategy emits for a single bar.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitSignal       ExitReason = "signal"
	ExitStopLoss     ExitReason = "stop-loss"
	ExitTakeProfit   ExitReason = "take-profit"
	ExitTrailingStop ExitReason = "trailing-stop"
	ExitEndOfData    ExitReason = "end-of-data"
)

// Position is the state of an open trade. It exists only while the simulator
// is in a trade and is owned exclusively by the simulation loop; on exit it
// is converted into a ClosedTrade and discarded.
type Position struct {
	EntryDate       time.Time
	EntryPrice      decimal.Decimal
	Quantity        decimal.Decimal
	StopLossPrice   decimal.Decimal // zero when no stop-loss is set
	TakeProfitPrice decimal.Decimal // zero when no take-profit is set
	TrailingStopPct decimal.Decimal // zero when no trailing stop is set
	HighWaterMark   decimal.Decimal
}

// MarketValue returns the mark-to-market value of the position at price.
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price).Round(MoneyScale)
}

// ClosedTrade is one completed round trip. Immutable once appended to the
// trade ledger.
type ClosedTrade struct {
	EntryDate   time.Time
	ExitDate    time.Time
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Profit      decimal.Decimal // exit proceeds minus entry cost, after costs
	ProfitPct   decimal.Decimal // profit relative to entry cost, in percent
	HoldingDays int
	EntryReason SignalType
	ExitReason  ExitReason
}

// Winning reports whether the trade realized a strictly positive profit.
func (t ClosedTrade) Winning() bool {
	return t.Profit.IsPositive()
}

// EquityPoint is the portfolio value observed at the close of one bar.
type EquityPoint struct {
	Date        time.Time
	Value       decimal.Decimal
	DrawdownPct float64 // decline from the running peak, 0..100
}

// MonthlyPerformance aggregates closed trades by exit month.
type MonthlyPerformance struct {
	Year   int
	Month  time.Month
	Profit decimal.Decimal
	Trades int
	Wins   int
}
