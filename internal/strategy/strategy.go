// Package strategy defines the Strategy interface for signal generation and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"kepler/internal/domain"
)

// Strategy is the interface that all signal generators must implement.
//
// Implementations must be pure: GenerateSignal may depend only on the bars
// up to and including index i, never on hidden state or I/O, so that a
// backtest over the same series is fully deterministic and independent runs
// can share a read-only series across goroutines.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Description returns a human-readable summary of the trigger rule and
	// its parameters.
	Description() string

	// MinDataPoints returns the number of leading bars the strategy needs
	// before it can produce a non-hold signal. GenerateSignal must return
	// SignalHold for any i < MinDataPoints().
	MinDataPoints() int

	// GenerateSignal evaluates the series at index i and returns a buy,
	// sell, or hold decision for that bar.
	GenerateSignal(bars []domain.PriceBar, i int) domain.SignalType
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Closes extracts the close prices of bars[:end+1] as a float64 slice for
// indicator math. Indicator values are dimensionless; monetary precision is
// preserved in the simulator, which prices fills from the decimal bars.
func Closes(bars []domain.PriceBar, end int) []float64 {
	if end >= len(bars) {
		end = len(bars) - 1
	}
	out := make([]float64, end+1)
	for i := 0; i <= end; i++ {
		out[i] = bars[i].Close.InexactFloat64()
	}
	return out
}
