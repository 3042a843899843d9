package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"kepler/internal/domain"
	"kepler/internal/strategy/builtins"
)

// ParamGrid maps a strategy parameter name to the candidate values to sweep.
type ParamGrid map[string][]float64

// Combinations expands the grid into the cartesian product of all candidate
// values. Parameter names are iterated in sorted order so the expansion is
// deterministic.
func (g ParamGrid) Combinations() []map[string]float64 {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	combos := []map[string]float64{{}}
	for _, name := range names {
		values := g[name]
		next := make([]map[string]float64, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				c := make(map[string]float64, len(combo)+1)
				for k, cv := range combo {
					c[k] = cv
				}
				c[name] = v
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// SweepOptions controls sweep execution.
type SweepOptions struct {
	Workers int           // concurrent runs, default GOMAXPROCS
	Timeout time.Duration // overall wall-clock limit, 0 = none
}

// SweepRun is the outcome of one parameter combination.
type SweepRun struct {
	Params map[string]float64
	Result *Result
	Err    error // non-nil when the combination failed validation
}

// SweepResult aggregates a parameter sweep. Ranked orders the successful
// runs best-first: highest total return, then lowest max drawdown, then grid
// order. Best is the first ranked run, nil when nothing succeeded.
type SweepResult struct {
	Best   *SweepRun
	Ranked []SweepRun
	Total  int // combinations attempted, including failures and skips
}

// Sweep runs one backtest per parameter combination of the grid, merging the
// request's fixed parameters under each combination. Runs execute on a
// bounded worker pool; the shared price series is read-only, so no locking
// happens inside a run. Cancellation is cooperative and checked between
// combinations, never mid-run. When the context ends early, the completed
// runs are still ranked and returned together with the context error.
func Sweep(ctx context.Context, bars []domain.PriceBar, req Request, grid ParamGrid, opts SweepOptions) (*SweepResult, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	combos := grid.Combinations()
	// Each worker writes only to its own index: the post-hoc merge below is
	// the only aggregation step, so no locking is needed here either.
	runs := make([]*SweepRun, len(combos))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				runs[idx] = sweepOne(bars, req, combos[idx])
			}
		}()
	}

feed:
	for idx := range combos {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	res := &SweepResult{Total: len(combos)}
	for _, r := range runs {
		if r == nil || r.Err != nil {
			continue
		}
		res.Ranked = append(res.Ranked, *r)
	}
	rankRuns(res.Ranked)
	if len(res.Ranked) > 0 {
		res.Best = &res.Ranked[0]
	}
	return res, ctx.Err()
}

func sweepOne(bars []domain.PriceBar, req Request, params map[string]float64) *SweepRun {
	merged := make(map[string]float64, len(req.Params)+len(params))
	for k, v := range req.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	run := &SweepRun{Params: params}
	strat, err := builtins.New(req.StrategyType, merged)
	if err != nil {
		run.Err = err
		return run
	}
	run.Result, run.Err = Run(bars, strat, req)
	return run
}

// rankRuns sorts best-first by total return, breaking ties with the smaller
// max drawdown. The sort is stable so equal runs keep grid order, which
// makes sweep output deterministic.
func rankRuns(runs []SweepRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := runs[i].Result.Metrics, runs[j].Result.Metrics
		if a.TotalReturnPct != b.TotalReturnPct {
			return a.TotalReturnPct > b.TotalReturnPct
		}
		return a.MaxDrawdownPct < b.MaxDrawdownPct
	})
}
