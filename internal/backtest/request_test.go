package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kepler/internal/config"
	"kepler/internal/domain"
)

func validRequest() Request {
	r := Request{
		Symbol:         "TEST",
		StrategyType:   "ma-cross",
		StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(100000),
	}
	r.ApplyDefaults()
	return r
}

func TestApplyDefaults(t *testing.T) {
	var r Request
	r.ApplyDefaults()

	if !r.PositionSizePct.Equal(DefaultPositionSizePct) {
		t.Errorf("PositionSizePct = %s, want %s", r.PositionSizePct, DefaultPositionSizePct)
	}
	if r.MaxPositions != DefaultMaxPositions {
		t.Errorf("MaxPositions = %d, want %d", r.MaxPositions, DefaultMaxPositions)
	}
	if !r.CommissionRate.Equal(DefaultCommissionRate) {
		t.Errorf("CommissionRate = %s, want %s", r.CommissionRate, DefaultCommissionRate)
	}
	if !r.SlippageRate.Equal(DefaultSlippageRate) {
		t.Errorf("SlippageRate = %s, want %s", r.SlippageRate, DefaultSlippageRate)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	r := Request{
		PositionSizePct: decimal.NewFromInt(25),
		MaxPositions:    4,
	}
	r.ApplyDefaults()
	if !r.PositionSizePct.Equal(decimal.NewFromInt(25)) {
		t.Errorf("PositionSizePct = %s, want 25", r.PositionSizePct)
	}
	if r.MaxPositions != 4 {
		t.Errorf("MaxPositions = %d, want 4", r.MaxPositions)
	}
}

func TestApplyConfig(t *testing.T) {
	cfg := config.BacktestConfig{
		InitialCapital:  "50000",
		PositionSizePct: 50,
		MaxPositions:    2,
		CommissionRate:  "0.01",
		SlippageRate:    "0.002",
		RiskFreeRate:    0.03,
	}

	var r Request
	if err := r.ApplyConfig(cfg); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if !r.InitialCapital.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("InitialCapital = %s, want 50000", r.InitialCapital)
	}
	if !r.PositionSizePct.Equal(decimal.NewFromInt(50)) {
		t.Errorf("PositionSizePct = %s, want 50", r.PositionSizePct)
	}
	if r.MaxPositions != 2 {
		t.Errorf("MaxPositions = %d, want 2", r.MaxPositions)
	}
	if !r.CommissionRate.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("CommissionRate = %s, want 0.01", r.CommissionRate)
	}
	if !r.SlippageRate.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("SlippageRate = %s, want 0.002", r.SlippageRate)
	}
	if r.RiskFreeRate != 0.03 {
		t.Errorf("RiskFreeRate = %f, want 0.03", r.RiskFreeRate)
	}

	// The config-supplied commission survives ApplyDefaults.
	r.ApplyDefaults()
	if !r.CommissionRate.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("CommissionRate after defaults = %s, want config value 0.01", r.CommissionRate)
	}
}

func TestApplyConfigKeepsExplicitValues(t *testing.T) {
	cfg := config.BacktestConfig{
		InitialCapital: "50000",
		CommissionRate: "0.01",
		MaxPositions:   2,
	}

	r := Request{
		InitialCapital: decimal.NewFromInt(200000),
		CommissionRate: decimal.RequireFromString("0.0005"),
		MaxPositions:   4,
	}
	if err := r.ApplyConfig(cfg); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if !r.InitialCapital.Equal(decimal.NewFromInt(200000)) {
		t.Errorf("InitialCapital = %s, want explicit 200000", r.InitialCapital)
	}
	if !r.CommissionRate.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("CommissionRate = %s, want explicit 0.0005", r.CommissionRate)
	}
	if r.MaxPositions != 4 {
		t.Errorf("MaxPositions = %d, want explicit 4", r.MaxPositions)
	}
}

func TestApplyConfigBadDecimal(t *testing.T) {
	var r Request
	if err := r.ApplyConfig(config.BacktestConfig{CommissionRate: "lots"}); err == nil {
		t.Error("malformed commission_rate accepted, want error")
	}
	if err := r.ApplyConfig(config.BacktestConfig{InitialCapital: "1e"}); err == nil {
		t.Error("malformed initial_capital accepted, want error")
	}
	if err := r.ApplyConfig(config.BacktestConfig{SlippageRate: "0,1"}); err == nil {
		t.Error("malformed slippage_rate accepted, want error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Request)
		field   string // "" means valid
	}{
		{"valid", func(r *Request) {}, ""},
		{"empty symbol", func(r *Request) { r.Symbol = "" }, "symbol"},
		{"empty strategy", func(r *Request) { r.StrategyType = "" }, "strategy"},
		{"missing dates", func(r *Request) { r.StartDate, r.EndDate = time.Time{}, time.Time{} }, "dates"},
		{"start after end", func(r *Request) { r.StartDate = r.EndDate.AddDate(0, 0, 1) }, "startDate"},
		{"zero capital", func(r *Request) { r.InitialCapital = decimal.Zero }, "initialCapital"},
		{"negative capital", func(r *Request) { r.InitialCapital = decimal.NewFromInt(-1) }, "initialCapital"},
		{"negative position size", func(r *Request) { r.PositionSizePct = decimal.NewFromInt(-1) }, "positionSizePct"},
		{"position size over 100", func(r *Request) { r.PositionSizePct = decimal.NewFromInt(101) }, "positionSizePct"},
		{"max positions negative", func(r *Request) { r.MaxPositions = -1 }, "maxPositions"},
		{"negative commission", func(r *Request) { r.CommissionRate = decimal.RequireFromString("-0.001") }, "commissionRate"},
		{"negative slippage", func(r *Request) { r.SlippageRate = decimal.RequireFromString("-0.001") }, "slippageRate"},
		{"stop loss 100", func(r *Request) { r.StopLossPct = decimal.NewFromInt(100) }, "stopLossPct"},
		{"negative stop loss", func(r *Request) { r.StopLossPct = decimal.NewFromInt(-5) }, "stopLossPct"},
		{"trailing stop 100", func(r *Request) { r.TrailingStopPct = decimal.NewFromInt(100) }, "trailingStopPct"},
		{"negative take profit", func(r *Request) { r.TakeProfitPct = decimal.NewFromInt(-5) }, "takeProfitPct"},
		// Take-profit above 100% is a legitimate target.
		{"large take profit", func(r *Request) { r.TakeProfitPct = decimal.NewFromInt(300) }, ""},
		{"start equals end", func(r *Request) { r.StartDate = r.EndDate }, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.mutate(&r)
			err := r.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *domain.ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("error field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}
