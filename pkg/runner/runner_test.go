package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
)

// recordingTask runs a closure and tracks start/finish times and run count.
type recordingTask struct {
	name    string
	inputs  []graph.TuplePath
	outputs []graph.TuplePath
	fn      func() error

	mu        sync.Mutex
	runCount  int
	startedAt time.Time
	finishAt  time.Time
}

func (t *recordingTask) Run(context.Context) error {
	t.mu.Lock()
	t.runCount++
	t.startedAt = time.Now()
	t.mu.Unlock()

	var err error
	if t.fn != nil {
		err = t.fn()
	}

	t.mu.Lock()
	t.finishAt = time.Now()
	t.mu.Unlock()

	return err
}

func (t *recordingTask) InputPaths() []graph.TuplePath  { return t.inputs }
func (t *recordingTask) OutputPaths() []graph.TuplePath { return t.outputs }

func (t *recordingTask) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.runCount
}

func path(components ...string) graph.TuplePath {
	return graph.NewTuplePath(components...)
}

func buildTracker(tasks ...*recordingTask) *graph.Tracker[graph.TuplePath, string] {
	t := graph.New[graph.TuplePath, string]()

	newPaths := map[graph.TuplePath]struct{}{}
	newTasks := make([]graph.Task[graph.TuplePath], 0, len(tasks))

	for _, task := range tasks {
		for _, p := range task.InputPaths() {
			newPaths[p] = struct{}{}
		}

		for _, p := range task.OutputPaths() {
			newPaths[p] = struct{}{}
		}

		newTasks = append(newTasks, task)
	}

	pathSlice := make([]graph.TuplePath, 0, len(newPaths))
	for p := range newPaths {
		pathSlice = append(pathSlice, p)
	}

	return t.Replaced(graph.ReplacedArgs[graph.TuplePath, string]{
		NewPaths: pathSlice,
		NewTasks: newTasks,
	})
}

func runWithTimeout(t *testing.T, tr *graph.Tracker[graph.TuplePath, string], events chan runner.Event[graph.TuplePath, string], opts runner.Options[graph.TuplePath, string]) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return runner.RunTracker(ctx, tr, events, opts)
}

func TestRunner_LinearChain(t *testing.T) {
	t.Parallel()

	t12 := &recordingTask{name: "t12", inputs: []graph.TuplePath{path("1")}, outputs: []graph.TuplePath{path("2")}}
	t23 := &recordingTask{name: "t23", inputs: []graph.TuplePath{path("2")}, outputs: []graph.TuplePath{path("3")}}

	tr := buildTracker(t12, t23)

	events := make(chan runner.Event[graph.TuplePath, string], 1)
	events <- runner.Event[graph.TuplePath, string]{
		PathSelector: func(*graph.Tracker[graph.TuplePath, string]) []graph.TuplePath {
			return []graph.TuplePath{path("1")}
		},
		Flags: runner.EventFlags[string]{PathsState: runner.PathUpToDate},
	}
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: true})
	require.NoError(t, err)

	assert.Equal(t, 1, t12.count())
	assert.Equal(t, 1, t23.count())
	assert.True(t, !t12.finishAt.After(t23.startedAt.Add(time.Millisecond)) || t12.finishAt.Before(t23.startedAt) || t12.finishAt.Equal(t23.startedAt))
}

func TestRunner_InitializingTask(t *testing.T) {
	t.Parallel()

	t0 := &recordingTask{name: "t0", outputs: []graph.TuplePath{path("1")}}
	t12 := &recordingTask{name: "t12", inputs: []graph.TuplePath{path("1")}, outputs: []graph.TuplePath{path("2")}}
	t23 := &recordingTask{name: "t23", inputs: []graph.TuplePath{path("2")}, outputs: []graph.TuplePath{path("3")}}

	tr := buildTracker(t0, t12, t23)

	events := make(chan runner.Event[graph.TuplePath, string])
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: true})
	require.NoError(t, err)

	assert.Equal(t, 1, t0.count())
	assert.Equal(t, 1, t12.count())
	assert.Equal(t, 1, t23.count())
}

func TestRunner_DiamondJoin(t *testing.T) {
	t.Parallel()

	var order []string

	var mu sync.Mutex

	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	t0 := &recordingTask{name: "t0", outputs: []graph.TuplePath{path("1")}, fn: func() error { record("t0"); return nil }}
	t12 := &recordingTask{name: "t12", inputs: []graph.TuplePath{path("1")}, outputs: []graph.TuplePath{path("2")}, fn: func() error { time.Sleep(5 * time.Millisecond); record("t12"); return nil }}
	t13 := &recordingTask{name: "t13", inputs: []graph.TuplePath{path("1")}, outputs: []graph.TuplePath{path("3")}, fn: func() error { time.Sleep(5 * time.Millisecond); record("t13"); return nil }}
	t234 := &recordingTask{name: "t234", inputs: []graph.TuplePath{path("2"), path("3")}, outputs: []graph.TuplePath{path("4")}, fn: func() error { record("t234"); return nil }}

	tr := buildTracker(t0, t12, t13, t234)

	events := make(chan runner.Event[graph.TuplePath, string])
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: true})
	require.NoError(t, err)

	assert.Equal(t, 1, t0.count())
	assert.Equal(t, 1, t12.count())
	assert.Equal(t, 1, t13.count())
	assert.Equal(t, 1, t234.count())

	require.Len(t, order, 4)
	assert.Equal(t, "t234", order[3])
}

func TestRunner_UpToDateNoOp(t *testing.T) {
	t.Parallel()

	t12 := &recordingTask{name: "t12", inputs: []graph.TuplePath{path("1")}, outputs: []graph.TuplePath{path("2")}}
	t23 := &recordingTask{name: "t23", inputs: []graph.TuplePath{path("2")}, outputs: []graph.TuplePath{path("3")}}

	tr := buildTracker(t12, t23)

	events := make(chan runner.Event[graph.TuplePath, string], 1)
	events <- runner.Event[graph.TuplePath, string]{
		PathSelector: func(*graph.Tracker[graph.TuplePath, string]) []graph.TuplePath {
			return []graph.TuplePath{path("1")}
		},
		Flags: runner.EventFlags[string]{PathsState: runner.PathUpToDate},
	}
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: false})
	require.NoError(t, err)

	assert.Equal(t, 0, t12.count())
	assert.Equal(t, 0, t23.count())
}

func TestRunner_FailureWithoutKeepGoing(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	failing := &recordingTask{name: "t", outputs: []graph.TuplePath{path("1")}, fn: func() error { return errBoom }}

	tr := buildTracker(failing)

	events := make(chan runner.Event[graph.TuplePath, string])
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: true})
	require.Error(t, err)

	var agg *runner.AggregateError

	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Failures, 1)
}

func TestRunner_FailureWithKeepGoing(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	failing := &recordingTask{name: "tf", outputs: []graph.TuplePath{path("1")}, fn: func() error { return errBoom }}
	t2 := &recordingTask{name: "t2", outputs: []graph.TuplePath{path("2")}}
	t23 := &recordingTask{name: "t23", inputs: []graph.TuplePath{path("2")}, outputs: []graph.TuplePath{path("3")}}

	tr := buildTracker(failing, t2, t23)

	events := make(chan runner.Event[graph.TuplePath, string])
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: true, KeepGoing: true})
	require.Error(t, err)

	var agg *runner.AggregateError

	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Failures, 1)

	assert.Equal(t, 1, t2.count())
	assert.Equal(t, 1, t23.count())
}

func TestRunner_WorkerPoolSizeLimitsConcurrency(t *testing.T) {
	t.Parallel()

	const taskCount = 6

	var inFlight int64

	var maxObserved int64

	tasks := make([]*recordingTask, taskCount)

	for i := range tasks {
		tasks[i] = &recordingTask{
			name:    "t",
			outputs: []graph.TuplePath{path(string(rune('a' + i)))},
			fn: func() error {
				cur := atomic.AddInt64(&inFlight, 1)

				for {
					observed := atomic.LoadInt64(&maxObserved)
					if cur <= observed || atomic.CompareAndSwapInt64(&maxObserved, observed, cur) {
						break
					}
				}

				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)

				return nil
			},
		}
	}

	recordingTasks := make([]*recordingTask, len(tasks))
	copy(recordingTasks, tasks)

	tr := buildTracker(tasks...)

	events := make(chan runner.Event[graph.TuplePath, string])
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{Outdated: true, WorkerPoolSize: 2})
	require.NoError(t, err)

	for _, task := range recordingTasks {
		assert.Equal(t, 1, task.count())
	}

	assert.LessOrEqual(t, atomic.LoadInt64(&maxObserved), int64(2))
}

func TestRunner_EmptyTrackerReturnsImmediately(t *testing.T) {
	t.Parallel()

	tr := graph.New[graph.TuplePath, string]()

	events := make(chan runner.Event[graph.TuplePath, string])
	close(events)

	err := runWithTimeout(t, tr, events, runner.Options[graph.TuplePath, string]{})
	require.NoError(t, err)
}
