package trakka_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
	"github.com/Sumatoshi-tech/trakka/pkg/trakka"
)

func writeTestPlan(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const linearPlan = `
paths:
  - name: src/main.go
    state: up_to_date
  - name: bin/app

tasks:
  - name: build
    command: ["true"]
    inputs: ["src/main.go"]
    outputs: ["bin/app"]
`

func TestRunnerRunPlanCompletesLinearPlan(t *testing.T) {
	t.Parallel()

	planPath := writeTestPlan(t, linearPlan)

	r := trakka.NewRunner(nil, runner.Options[graph.TuplePath, string]{Outdated: true})

	require.NoError(t, r.RunPlan(context.Background(), planPath))
}

func TestRunnerRunPlanDedupsConcurrentCalls(t *testing.T) {
	t.Parallel()

	planPath := writeTestPlan(t, linearPlan)

	r := trakka.NewRunner(nil, runner.Options[graph.TuplePath, string]{Outdated: true})

	const callers = 8

	errs := make(chan error, callers)

	for range callers {
		go func() {
			errs <- r.RunPlan(context.Background(), planPath)
		}()
	}

	for range callers {
		assert.NoError(t, <-errs)
	}
}

func TestRunnerRunPlansBoundsConcurrency(t *testing.T) {
	t.Parallel()

	paths := make([]string, 4)
	for i := range paths {
		paths[i] = writeTestPlan(t, linearPlan)
	}

	var inflight, maxInflight atomic.Int64

	r := trakka.NewRunner(nil, runner.Options[graph.TuplePath, string]{
		Outdated: true,
		Callbacks: runner.Callbacks[graph.TuplePath, string]{
			OnTaskRunning: func(*graph.Tracker[graph.TuplePath, string], graph.Task[graph.TuplePath]) {
				cur := inflight.Add(1)
				for {
					prevMax := maxInflight.Load()
					if cur <= prevMax || maxInflight.CompareAndSwap(prevMax, cur) {
						break
					}
				}
			},
			OnTaskStopped: func(*graph.Tracker[graph.TuplePath, string], graph.Task[graph.TuplePath]) {
				inflight.Add(-1)
			},
		},
	})

	require.NoError(t, r.RunPlans(context.Background(), paths, 2))
	assert.LessOrEqual(t, maxInflight.Load(), int64(2))
}

func TestRunnerRunPlansPropagatesFailure(t *testing.T) {
	t.Parallel()

	failingPlan := writeTestPlan(t, `
paths:
  - name: bin/app

tasks:
  - name: build
    command: ["false"]
    outputs: ["bin/app"]
`)

	r := trakka.NewRunner(nil, runner.Options[graph.TuplePath, string]{Outdated: true})

	err := r.RunPlans(context.Background(), []string{failingPlan}, 1)
	require.Error(t, err)
}
