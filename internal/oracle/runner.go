package oracle

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"DebtOracle/internal/result"
	"DebtOracle/internal/scenario"
)

// EvaluateAll evaluates states on up to workers goroutines and returns the
// results in input order. workers <= 0 uses GOMAXPROCS. The first error
// cancels the remaining work.
func (e *Evaluator) EvaluateAll(ctx context.Context, states []*scenario.ProtocolState, workers int) ([]*result.ScenarioResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*result.ScenarioResult, len(states))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, s := range states {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.Evaluate(s)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Violations returns every result that broke an invariant.
func Violations(results []*result.ScenarioResult) []*result.ScenarioResult {
	var out []*result.ScenarioResult
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
