// Package trakka is a small facade tying the graph, planfile, and runner
// packages together for embedders that want to drive a plan to quiescence
// without wiring a Tracker, a Registry, and a RunTracker call by hand.
package trakka

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/planfile"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
)

// Runner compiles and runs plan documents for an embedder. Concurrent
// RunPlan calls against the same plan path are deduplicated: the second
// caller waits on the first's in-flight run instead of recompiling and
// rerunning the same plan from scratch.
type Runner struct {
	registry planfile.Registry
	opts     runner.Options[graph.TuplePath, string]

	group singleflight.Group
}

// NewRunner creates a Runner. registry resolves any TaskSpec that names a
// callee instead of a subprocess command; it may be nil if every plan the
// Runner drives uses only command tasks. opts configures every run the
// Runner performs (Outdated, KeepGoing, WorkerPoolSize, Logger, Metrics,
// and so on); each RunPlan/RunPlans call uses a copy of opts.
func NewRunner(registry planfile.Registry, opts runner.Options[graph.TuplePath, string]) *Runner {
	return &Runner{registry: registry, opts: opts}
}

// RunPlan loads, compiles, and runs the plan at path to quiescence.
// Concurrent calls for the same path share one underlying run: a caller
// arriving while another's run is in flight blocks on that run's result
// instead of starting a redundant one.
func (r *Runner) RunPlan(ctx context.Context, path string) error {
	_, err, _ := r.group.Do(path, func() (any, error) {
		return nil, r.runPlan(ctx, path)
	})

	return err
}

func (r *Runner) runPlan(ctx context.Context, path string) error {
	plan, err := planfile.LoadPlan(path)
	if err != nil {
		return fmt.Errorf("trakka: %w", err)
	}

	compiled, err := planfile.Compile(plan, r.registry)
	if err != nil {
		return fmt.Errorf("trakka: %w", err)
	}

	events := make(chan runner.Event[graph.TuplePath, string], len(compiled.Events))
	for _, ev := range compiled.Events {
		events <- ev
	}
	close(events)

	return runner.RunTracker(ctx, compiled.Tracker, events, r.opts)
}

// RunPlans runs every plan in paths, bounded to at most concurrency
// simultaneous runs (concurrency <= 0 means unbounded). It returns the
// first error encountered; ctx is canceled for the remaining plans once
// one fails, the same cancellation-on-first-error behavior as
// [errgroup.Group].
func (r *Runner) RunPlans(ctx context.Context, paths []string, concurrency int) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}

	for _, path := range paths {
		group.Go(func() error {
			return r.RunPlan(groupCtx, path)
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("trakka: %w", err)
	}

	return nil
}
