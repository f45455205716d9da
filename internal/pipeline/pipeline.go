// Package pipeline drives the Fixpoint Engine, Type Checker, and
// Reference Resolver across every method in a program in parallel,
// generalizing internal/semantic.PassManager.RunAll's "run a list of
// passes over a program" shape from a sequential list of whole-program
// passes to a bounded-parallel fan-out over per-method work, since
// spec.md section 5 makes methods (not passes) the unit of
// parallelism: "Methods are processed in parallel; a single method's
// fixpoint iteration is strictly single-threaded."
package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dexopt/typecore/internal/diag"
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/resolver"
)

// MethodResult is one method's outcome: either an error (the method
// failed type checking and was left unresolved) or a resolver outcome.
type MethodResult struct {
	Method  *ir.Method
	Err     *diag.Error
	Outcome resolver.Outcome
}

// Run resolves every method in methods concurrently, sharing hier, an
// optional minSDK, and a single Counters across all workers. workers
// <= 0 defaults to GOMAXPROCS, matching the teacher's pattern of
// falling back to a sane default rather than erroring on a zero
// config value.
func Run(ctx context.Context, methods []*ir.Method, hier *hierarchy.Hierarchy, minSDK *hierarchy.MinSDK, workers int, opts ...resolver.Option) ([]MethodResult, *resolver.Counters, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	counters := &resolver.Counters{}
	results := make([]MethodResult, len(methods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, m := range methods {
		i, m := i, m
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			r := resolver.New(hier, minSDK, counters, opts...)
			outcome := r.Run(m)
			res := MethodResult{Method: m, Outcome: outcome}
			if outcome.Checker.Fail() {
				res.Err = outcome.Checker.FirstError()
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, counters, err
	}
	return results, counters, nil
}
