package backtest

import (
	"github.com/shopspring/decimal"

	"kepler/internal/domain"
	"kepler/internal/strategy"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// lot is one open position plus the entry cost actually deducted from cash,
// which is needed to realize profit on exit.
type lot struct {
	pos  domain.Position
	cost decimal.Decimal
}

// simState is the portfolio state folded over the price series: available
// cash, the open lots, and the ledger of closed trades. Each bar produces
// the next state via simulator.step, which keeps the transitions auditable
// in isolation.
type simState struct {
	cash   decimal.Decimal
	open   []lot
	ledger []domain.ClosedTrade
}

// equity returns cash plus the mark-to-market value of all open lots at
// price.
func (s simState) equity(price decimal.Decimal) decimal.Decimal {
	v := s.cash
	for i := range s.open {
		v = v.Add(s.open[i].pos.MarketValue(price))
	}
	return v.Round(domain.MoneyScale)
}

// simulator walks a price series bar by bar, applying risk orders before
// consulting the strategy on every bar where a position is open.
type simulator struct {
	bars  []domain.PriceBar
	strat strategy.Strategy
	req   Request
}

// run executes the simulation and returns the final state and the equity
// curve (drawdowns not yet annotated). A series shorter than the strategy's
// minimum data requirement performs zero iterations: benign empty outcome.
func (s *simulator) run() (simState, []domain.EquityPoint) {
	st := simState{cash: s.req.InitialCapital}
	if len(s.bars) < s.strat.MinDataPoints() {
		return st, nil
	}

	curve := make([]domain.EquityPoint, 0, len(s.bars))
	for i := range s.bars {
		st = s.step(st, i)
		curve = append(curve, domain.EquityPoint{
			Date:  s.bars[i].Date,
			Value: st.equity(s.bars[i].Close),
		})
	}

	// Liquidate anything still open at the last close so the ledger is
	// complete. The fill is a plain mark-to-market close, no slippage or
	// commission, keeping final cash identical to the last equity point.
	last := len(s.bars) - 1
	for _, l := range st.open {
		st = s.close(st, l, s.bars[last], s.bars[last].Close, domain.ExitEndOfData, false)
	}
	st.open = nil
	return st, curve
}

// step advances the state by one bar: risk orders first (stop-loss, then
// take-profit, then trailing stop, in capital-preservation order), then the
// strategy signal. A risk exit on a bar suppresses re-entry on that same bar.
func (s *simulator) step(st simState, i int) simState {
	bar := s.bars[i]
	exited := false

	if len(st.open) > 0 {
		remaining := st.open[:0:0]
		for _, l := range st.open {
			if bar.High.GreaterThan(l.pos.HighWaterMark) {
				l.pos.HighWaterMark = bar.High
			}
			trigger, reason, hit := s.riskExit(&l.pos, bar)
			if hit {
				st = s.close(st, l, bar, trigger, reason, true)
				exited = true
				continue
			}
			remaining = append(remaining, l)
		}
		st.open = remaining
	}

	switch s.strat.GenerateSignal(s.bars, i) {
	case domain.SignalSell:
		for _, l := range st.open {
			st = s.close(st, l, bar, bar.Close, domain.ExitSignal, true)
		}
		st.open = nil
	case domain.SignalBuy:
		if !exited && len(st.open) < s.req.MaxPositions {
			st = s.enter(st, bar)
		}
	}
	return st
}

// riskExit checks the bar's high/low against the position's risk orders and
// returns the fill trigger price and exit reason of the first rule hit.
func (s *simulator) riskExit(p *domain.Position, bar domain.PriceBar) (decimal.Decimal, domain.ExitReason, bool) {
	if !p.StopLossPrice.IsZero() && bar.Low.LessThanOrEqual(p.StopLossPrice) {
		return p.StopLossPrice, domain.ExitStopLoss, true
	}
	if !p.TakeProfitPrice.IsZero() && bar.High.GreaterThanOrEqual(p.TakeProfitPrice) {
		return p.TakeProfitPrice, domain.ExitTakeProfit, true
	}
	if p.TrailingStopPct.IsPositive() {
		stop := p.HighWaterMark.Mul(one.Sub(p.TrailingStopPct.Div(hundred))).Round(domain.MoneyScale)
		if bar.Low.LessThanOrEqual(stop) {
			return stop, domain.ExitTrailingStop, true
		}
	}
	return decimal.Zero, "", false
}

// enter opens a new lot at the bar's close, adjusted for slippage, sized as
// a fraction of available cash. When cash cannot fund any positive quantity
// the signal is skipped: no trade, no error.
func (s *simulator) enter(st simState, bar domain.PriceBar) simState {
	entryPrice := bar.Close.Mul(one.Add(s.req.SlippageRate)).Round(domain.MoneyScale)
	if !entryPrice.IsPositive() {
		return st
	}

	// Commission is part of the funding requirement so that opening a
	// full-size position can never drive cash negative.
	budget := st.cash.Mul(s.req.PositionSizePct).Div(hundred)
	unitCost := entryPrice.Mul(one.Add(s.req.CommissionRate))
	qty := budget.Div(unitCost).RoundDown(domain.MoneyScale)
	if !qty.IsPositive() {
		return st
	}
	cost := qty.Mul(unitCost).Round(domain.MoneyScale)
	if cost.GreaterThan(st.cash) {
		return st
	}

	pos := domain.Position{
		EntryDate:       bar.Date,
		EntryPrice:      entryPrice,
		Quantity:        qty,
		HighWaterMark:   bar.High,
		TrailingStopPct: s.req.TrailingStopPct,
	}
	if s.req.StopLossPct.IsPositive() {
		pos.StopLossPrice = entryPrice.Mul(one.Sub(s.req.StopLossPct.Div(hundred))).Round(domain.MoneyScale)
	}
	if s.req.TakeProfitPct.IsPositive() {
		pos.TakeProfitPrice = entryPrice.Mul(one.Add(s.req.TakeProfitPct.Div(hundred))).Round(domain.MoneyScale)
	}

	st.cash = st.cash.Sub(cost)
	st.open = append(st.open, lot{pos: pos, cost: cost})
	return st
}

// close realizes a lot at the trigger price and appends the ClosedTrade.
// withCosts applies exit slippage and commission symmetric to entry; the
// end-of-data liquidation passes false.
func (s *simulator) close(st simState, l lot, bar domain.PriceBar, trigger decimal.Decimal, reason domain.ExitReason, withCosts bool) simState {
	exitPrice := trigger
	proceeds := l.pos.Quantity.Mul(exitPrice)
	if withCosts {
		exitPrice = trigger.Mul(one.Sub(s.req.SlippageRate)).Round(domain.MoneyScale)
		proceeds = l.pos.Quantity.Mul(exitPrice).Mul(one.Sub(s.req.CommissionRate))
	}
	proceeds = proceeds.Round(domain.MoneyScale)

	profit := proceeds.Sub(l.cost)
	profitPct := decimal.Zero
	if l.cost.IsPositive() {
		profitPct = profit.Div(l.cost).Mul(hundred).Round(domain.ReportScale)
	}

	st.cash = st.cash.Add(proceeds)
	st.ledger = append(st.ledger, domain.ClosedTrade{
		EntryDate:   l.pos.EntryDate,
		ExitDate:    bar.Date,
		EntryPrice:  l.pos.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    l.pos.Quantity,
		Profit:      profit.Round(domain.ReportScale),
		ProfitPct:   profitPct,
		HoldingDays: int(bar.Date.Sub(l.pos.EntryDate).Hours() / 24),
		EntryReason: domain.SignalBuy,
		ExitReason:  reason,
	})
	return st
}
