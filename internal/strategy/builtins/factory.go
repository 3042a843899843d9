package builtins

import (
	"kepler/internal/domain"
	"kepler/internal/strategy"
)

// Default parameter values applied by New when a parameter is absent.
const (
	DefaultMACrossShort = 10
	DefaultMACrossLong  = 30

	DefaultRSIPeriod     = 14
	DefaultRSIOversold   = 30
	DefaultRSIOverbought = 70

	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9

	DefaultBollingerPeriod     = 20
	DefaultBollingerMultiplier = 2.0

	DefaultMomentumPeriod = 10
	DefaultMomentumEntry  = 5.0  // percent
	DefaultMomentumExit   = -5.0 // percent
)

// New constructs a built-in strategy by type name, applying documented
// defaults for any parameter absent from params and validating the rest.
// Unknown type names and out-of-range parameters yield a ValidationError.
func New(typ string, params map[string]float64) (strategy.Strategy, error) {
	p := paramReader{params: params}
	switch typ {
	case "ma-cross":
		return NewMACross(
			p.intOr("shortPeriod", DefaultMACrossShort),
			p.intOr("longPeriod", DefaultMACrossLong),
			p.floatOr("useEMA", 0) != 0,
		)
	case "rsi":
		return NewRSI(
			p.intOr("period", DefaultRSIPeriod),
			p.floatOr("oversoldLevel", DefaultRSIOversold),
			p.floatOr("overboughtLevel", DefaultRSIOverbought),
		)
	case "macd":
		return NewMACD(
			p.intOr("fastPeriod", DefaultMACDFast),
			p.intOr("slowPeriod", DefaultMACDSlow),
			p.intOr("signalPeriod", DefaultMACDSignal),
		)
	case "bollinger":
		return NewBollingerBand(
			p.intOr("period", DefaultBollingerPeriod),
			p.floatOr("stdDevMultiplier", DefaultBollingerMultiplier),
		)
	case "momentum":
		return NewMomentum(
			p.intOr("period", DefaultMomentumPeriod),
			p.floatOr("entryThreshold", DefaultMomentumEntry),
			p.floatOr("exitThreshold", DefaultMomentumExit),
		)
	default:
		return nil, domain.NewValidationError("strategy", "unknown strategy type %q", typ)
	}
}

// Types returns the names accepted by New, sorted.
func Types() []string {
	return []string{"bollinger", "ma-cross", "macd", "momentum", "rsi"}
}

// DefaultRegistry returns a Registry pre-populated with every built-in
// strategy at its default parameters.
func DefaultRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	for _, typ := range Types() {
		s, err := New(typ, nil)
		if err != nil {
			// Defaults are validated at compile time by the constants above;
			// a failure here is a programming error.
			panic(err)
		}
		r.Register(s)
	}
	return r
}

// paramReader reads optional parameters from a name->value map.
type paramReader struct {
	params map[string]float64
}

func (p paramReader) floatOr(name string, def float64) float64 {
	if v, ok := p.params[name]; ok {
		return v
	}
	return def
}

func (p paramReader) intOr(name string, def int) int {
	if v, ok := p.params[name]; ok {
		return int(v)
	}
	return def
}
