// Package runner drives a [graph.Tracker] to quiescence: it dispatches
// every task whose inputs are up to date, applies caller-supplied events
// to reshape the tracker mid-run, and reports failures once the run
// settles (or immediately, under KeepGoing=false).
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Sumatoshi-tech/trakka/internal/observability"
	"github.com/Sumatoshi-tech/trakka/internal/queue"
	"github.com/Sumatoshi-tech/trakka/pkg/graph"
)

var tracer = otel.Tracer("trakka.runner")

// Options configures a Runner.
type Options[P comparable, Tg comparable] struct {
	// Outdated marks every tracked path as outdated at run start. When
	// false, every path starts up to date (a no-op run unless an event
	// outdates something).
	Outdated bool

	// KeepGoing lets the run continue past task failures, collecting
	// every failure into the returned AggregateError instead of stopping
	// at the first one.
	KeepGoing bool

	// Callbacks are optional observer hooks; see the Callbacks doc comment
	// for its concurrency contract.
	Callbacks Callbacks[P, Tg]

	// WorkerPoolSize bounds the number of tasks dispatched concurrently.
	// Zero or negative means unbounded (one goroutine per ready task).
	WorkerPoolSize int

	// DispatchRate, when non-nil, throttles task dispatch (useful against
	// rate-limited external tools a Task.Run shells out to).
	DispatchRate *rate.Limiter

	// Metrics receives the run's duration (RecordRun) when the run ends and
	// queue-depth changes as the loop drains events. RunTracker does not
	// call the per-task TaskDispatched, TaskFailed or TaskPoisoned
	// counters. Nil disables metrics recording.
	Metrics *observability.RunMetrics

	// Logger receives structured log records for the run: Debug on event
	// application, Info on task dispatch/completion and run start/stop,
	// Warn on a path poisoned by a task failure, Error on the final
	// aggregate failure. Nil uses slog.Default().
	Logger *slog.Logger
}

// RunTracker drives tracker to quiescence, applying caller-supplied events
// read from events together with the Runner's own synthetic task-progress
// events. It returns once events is closed, no events are pending and every
// path is up to date or poisoned; it returns earlier when ctx is done, or
// after the first task failure unless KeepGoing is set. It returns a
// *AggregateError (via errors.As) if any task failed; nil on a clean run.
// Synthetic completion events go to an internal queue rather than to
// events, so closing events while tasks are in flight does not cut the
// run short.
func RunTracker[P comparable, Tg comparable](
	ctx context.Context,
	tracker *graph.Tracker[P, Tg],
	events <-chan Event[P, Tg],
	opts Options[P, Tg],
) error {
	runID := uuid.New().String()

	ctx, span := tracer.Start(ctx, "trakka.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Bool("run.outdated", opts.Outdated),
		attribute.Bool("run.keep_going", opts.KeepGoing),
	))
	defer span.End()

	start := time.Now()

	r := newRunner(tracker, opts)

	r.logger.Info("trakka run starting", "run.id", runID, "run.outdated", opts.Outdated, "run.keep_going", opts.KeepGoing)

	internalEvents := queue.New[Event[P, Tg]]()

	eventsDone := make(chan struct{})

	go func() {
		defer close(eventsDone)

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}

				internalEvents.Push(ev)
			case <-ctx.Done():
				return
			}
		}
	}()

	var pollerLive = true

	for {
		select {
		case <-eventsDone:
			pollerLive = false
		default:
		}

		if r.failureCount() > 0 && !r.keepGoing {
			break
		}

		pending := internalEvents.DrainAll()
		if opts.Metrics != nil && len(pending) > 0 {
			opts.Metrics.QueueDepthChanged(ctx, -int64(len(pending)))
		}

		r.handleEvents(ctx, pending)
		r.runUpdate(ctx, internalEvents)

		if !pollerLive && internalEvents.Len() == 0 && r.upToDate() {
			break
		}

		if ctx.Err() != nil {
			break
		}

		// Yield: the poller and in-flight task goroutines push onto
		// internalEvents asynchronously; without a brief pause this loop
		// would spin continuously while waiting on them.
		time.Sleep(time.Millisecond)
	}

	r.wg.Wait()

	failures := r.failureSnapshot()

	if opts.Metrics != nil {
		opts.Metrics.RecordRun(ctx, observability.RunStats{
			Duration:        time.Since(start),
			TasksDispatched: r.dispatchedCount(),
			TasksFailed:     int64(len(failures)),
		})
	}

	if len(failures) > 0 {
		span.SetStatus(codes.Error, "task failure")

		aggregate := newAggregateError(failures)
		r.logger.Error("trakka run failed", "run.id", runID, "failure_count", len(failures), "error", aggregate)

		return aggregate
	}

	if ctx.Err() != nil {
		return fmt.Errorf("trakka: run canceled: %w", ctx.Err())
	}

	r.logger.Info("trakka run stopped", "run.id", runID, "duration", time.Since(start), "tasks_dispatched", r.dispatchedCount())

	return nil
}

type runner[P comparable, Tg comparable] struct {
	mu sync.Mutex

	tracker *graph.Tracker[P, Tg]

	pathStates   map[P]PathState
	pathsByState map[PathState]map[P]struct{}

	taskStates   map[graph.Task[P]]TaskState
	tasksByState map[TaskState]map[graph.Task[P]]struct{}

	callbacks Callbacks[P, Tg]
	keepGoing bool

	failures []error

	wg sync.WaitGroup

	sem chan struct{}

	dispatchRate *rate.Limiter

	dispatched int64

	logger *slog.Logger
}

func newRunner[P comparable, Tg comparable](tracker *graph.Tracker[P, Tg], opts Options[P, Tg]) *runner[P, Tg] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &runner[P, Tg]{
		tracker:      tracker,
		pathStates:   make(map[P]PathState),
		pathsByState: make(map[PathState]map[P]struct{}),
		taskStates:   make(map[graph.Task[P]]TaskState),
		tasksByState: make(map[TaskState]map[graph.Task[P]]struct{}),
		callbacks:    opts.Callbacks,
		keepGoing:    opts.KeepGoing,
		dispatchRate: opts.DispatchRate,
		logger:       logger,
	}

	for _, state := range []PathState{PathOutdated, PathUpdating, PathUpToDate, PathPoisoned} {
		r.pathsByState[state] = make(map[P]struct{})
	}

	for _, state := range []TaskState{TaskStopped, TaskRunning, TaskZombie} {
		r.tasksByState[state] = make(map[graph.Task[P]]struct{})
	}

	initial := PathUpToDate
	if opts.Outdated {
		initial = PathOutdated
	}

	for _, p := range tracker.Paths() {
		r.pathStates[p] = initial
		r.pathsByState[initial][p] = struct{}{}
	}

	for _, task := range tracker.Tasks() {
		r.taskStates[task] = TaskStopped
		r.tasksByState[TaskStopped][task] = struct{}{}
	}

	if opts.WorkerPoolSize > 0 {
		r.sem = make(chan struct{}, opts.WorkerPoolSize)
	}

	return r
}

func (r *runner[P, Tg]) dispatchedCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dispatched
}

func (r *runner[P, Tg]) failureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.failures)
}

func (r *runner[P, Tg]) failureSnapshot() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]error, len(r.failures))
	copy(out, r.failures)

	return out
}

func (r *runner[P, Tg]) removePath(p P) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker = r.tracker.Replaced(graph.ReplacedArgs[P, Tg]{OldPaths: []P{p}})
	delete(r.pathsByState[r.pathStates[p]], p)
	delete(r.pathStates, p)
}

func (r *runner[P, Tg]) addPath(p P, state PathState) {
	if state != PathUpToDate {
		state = PathOutdated
	}

	r.mu.Lock()
	r.tracker = r.tracker.Replaced(graph.ReplacedArgs[P, Tg]{NewPaths: []P{p}})
	r.pathsByState[state][p] = struct{}{}
	r.pathStates[p] = state
	tracker := r.tracker
	r.mu.Unlock()

	r.callbacks.firePathAdded(tracker, p)

	switch state {
	case PathOutdated, PathUpToDate:
		r.callbacks.firePathState(tracker, p, state)
	case PathUpdating, PathUpdated, PathPoisoned:
		// A path can never be added directly in these states.
	}
}

// removeTask drops task from the tracker, or — if it is mid-run — marks it
// a zombie so the run loop deletes it once its goroutine finishes.
func (r *runner[P, Tg]) removeTask(task graph.Task[P]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.taskStates[task] {
	case TaskRunning:
		r.setTaskStateLocked(task, TaskZombie)
	case TaskZombie:
		// Already pending removal.
	default:
		r.tracker = r.tracker.Replaced(graph.ReplacedArgs[P, Tg]{OldTasks: []graph.Task[P]{task}})
		delete(r.tasksByState[r.taskStates[task]], task)
		delete(r.taskStates, task)
	}
}

func (r *runner[P, Tg]) addTask(task graph.Task[P]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker = r.tracker.Replaced(graph.ReplacedArgs[P, Tg]{NewTasks: []graph.Task[P]{task}})
	r.taskStates[task] = TaskStopped
	r.tasksByState[TaskStopped][task] = struct{}{}
}

// setPathState transitions path to state and fires the matching callback.
// Per spec.md §4.3, a transition to PathUpdated observed here is always
// from PathUpdating (-> PathUpToDate); anything else collapses to
// PathOutdated, since PathUpdated itself never settles.
func (r *runner[P, Tg]) setPathState(p P, requested PathState) {
	r.mu.Lock()

	actual := requested
	if requested == PathUpdated {
		if r.pathStates[p] == PathUpdating {
			actual = PathUpToDate
		} else {
			actual = PathOutdated
		}
	}

	delete(r.pathsByState[r.pathStates[p]], p)
	r.pathStates[p] = actual
	r.pathsByState[actual][p] = struct{}{}
	tracker := r.tracker

	r.mu.Unlock()

	r.callbacks.firePathState(tracker, p, actual)
}

func (r *runner[P, Tg]) setTaskStateLocked(task graph.Task[P], state TaskState) {
	delete(r.tasksByState[r.taskStates[task]], task)
	r.taskStates[task] = state
	r.tasksByState[state][task] = struct{}{}
}

func (r *runner[P, Tg]) setTaskState(task graph.Task[P], state TaskState) {
	r.mu.Lock()
	r.setTaskStateLocked(task, state)
	tracker := r.tracker
	r.mu.Unlock()

	switch state {
	case TaskStopped:
		r.callbacks.fireTaskStopped(tracker, task)
	case TaskRunning:
		r.callbacks.fireTaskRunning(tracker, task)
	case TaskZombie:
		// No dedicated hook; surfaced through the eventual stopped/removal.
	}
}

func (r *runner[P, Tg]) replaceTaskTags(task graph.Task[P], tags []Tg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker = r.tracker.Replaced(graph.ReplacedArgs[P, Tg]{
		OldTasks:       []graph.Task[P]{task},
		NewTaggedTasks: map[graph.Task[P]][]Tg{task: tags},
	})
}

// handleEvents applies every pending event to the tracker and state maps.
// It does not dispatch tasks; that is runUpdate's job.
func (r *runner[P, Tg]) handleEvents(ctx context.Context, events []Event[P, Tg]) {
	for _, event := range events {
		r.mu.Lock()
		tracker := r.tracker
		r.mu.Unlock()

		r.callbacks.fireEvent(tracker, event)

		r.logger.Debug("trakka.event.apply", "has_path_selector", event.PathSelector != nil, "has_task_selector", event.TaskSelector != nil)

		_, span := tracer.Start(ctx, "trakka.event.apply")

		if event.PathSelector != nil {
			r.applyPathEvent(event)
		}

		if event.TaskSelector != nil {
			r.applyTaskEvent(event)
		}

		span.End()
	}
}

func (r *runner[P, Tg]) applyPathEvent(event Event[P, Tg]) {
	r.mu.Lock()
	tracker := r.tracker
	r.mu.Unlock()

	selected := toSet(event.PathSelector(tracker))

	if event.PathRegenerator != nil {
		regenerated := toSet(event.PathRegenerator(tracker, setToSlice(selected)))

		for p := range selected {
			if _, kept := regenerated[p]; !kept {
				r.removePath(p)
			}
		}

		for p := range regenerated {
			if _, existed := selected[p]; !existed {
				r.addPath(p, event.Flags.PathsState)
			}
		}

		selected = regenerated
	}

	for p := range selected {
		r.setPathState(p, event.Flags.PathsState)
	}
}

func (r *runner[P, Tg]) applyTaskEvent(event Event[P, Tg]) {
	r.mu.Lock()
	tracker := r.tracker
	r.mu.Unlock()

	selected := toTaskSet(event.TaskSelector(tracker))

	if event.TaskRegenerator != nil {
		regenerated := toTaskSet(event.TaskRegenerator(tracker, setToTaskSlice(selected)))

		for task := range selected {
			if _, kept := regenerated[task]; !kept {
				r.removeTask(task)

				if event.Flags.RemovedTasksOutdatePaths {
					for _, p := range task.OutputPaths() {
						r.setPathState(p, PathOutdated)
					}
				}
			}
		}

		for task := range regenerated {
			if _, existed := selected[task]; !existed {
				r.addTask(task)
			}
		}

		selected = regenerated
	}

	if event.Flags.TasksTagsSet {
		for task := range selected {
			r.replaceTaskTags(task, event.Flags.TasksTags)
		}
	}
}

// runUpdate dispatches every stopped task whose output paths are outdated
// and whose input paths are all up to date.
func (r *runner[P, Tg]) runUpdate(ctx context.Context, out *queue.FIFO[Event[P, Tg]]) {
	r.mu.Lock()

	available := make([]graph.Task[P], 0, len(r.tasksByState[TaskStopped]))
	for task := range r.tasksByState[TaskStopped] {
		available = append(available, task)
	}

	outdated := make(map[P]struct{}, len(r.pathsByState[PathOutdated]))
	for p := range r.pathsByState[PathOutdated] {
		outdated[p] = struct{}{}
	}

	pathStates := make(map[P]PathState, len(r.pathStates))
	for p, state := range r.pathStates {
		pathStates[p] = state
	}

	r.mu.Unlock()

	nixed := make(map[P]struct{})

	for p := range outdated {
		if _, done := nixed[p]; done {
			continue
		}

		for _, task := range available {
			if !outputsContain(task, p) {
				continue
			}

			if !inputsUpToDate(task, pathStates) {
				continue
			}

			for _, outputPath := range task.OutputPaths() {
				nixed[outputPath] = struct{}{}
			}

			r.dispatch(ctx, task, out)
		}
	}
}

func outputsContain[P comparable](task graph.Task[P], p P) bool {
	for _, out := range task.OutputPaths() {
		if out == p {
			return true
		}
	}

	return false
}

func inputsUpToDate[P comparable](task graph.Task[P], states map[P]PathState) bool {
	for _, in := range task.InputPaths() {
		if states[in] != PathUpToDate {
			return false
		}
	}

	return true
}

func (r *runner[P, Tg]) dispatch(ctx context.Context, task graph.Task[P], out *queue.FIFO[Event[P, Tg]]) {
	out.Push(Event[P, Tg]{
		PathSelector: func(*graph.Tracker[P, Tg]) []P { return task.OutputPaths() },
		Flags:        EventFlags[Tg]{HintLocal: true, PathsState: PathUpdating},
	})

	r.mu.Lock()
	r.dispatched++
	r.mu.Unlock()

	r.logger.Info("trakka task dispatched", "task.outputs", stringifyPaths(task.OutputPaths()))

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if r.sem != nil {
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
		}

		if r.dispatchRate != nil {
			if err := r.dispatchRate.Wait(ctx); err != nil {
				return
			}
		}

		r.runTask(ctx, task, out)
	}()
}

func (r *runner[P, Tg]) runTask(ctx context.Context, task graph.Task[P], out *queue.FIFO[Event[P, Tg]]) {
	r.setTaskState(task, TaskRunning)

	taskCtx, span := tracer.Start(ctx, "trakka.task", trace.WithAttributes(
		attribute.StringSlice("task.outputs", stringifyPaths(task.OutputPaths())),
	))
	defer span.End()

	err := task.Run(taskCtx)

	if err != nil {
		r.mu.Lock()
		tracker := r.tracker
		r.mu.Unlock()

		r.callbacks.fireTaskFailed(tracker, task)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		r.mu.Lock()
		r.failures = append(r.failures, errors.Wrap(err, "task failed"))
		r.mu.Unlock()

		r.logger.Warn("trakka task poisoned its paths", "task.outputs", stringifyPaths(task.OutputPaths()), "error", err)

		out.Push(Event[P, Tg]{
			PathSelector: func(*graph.Tracker[P, Tg]) []P { return task.OutputPaths() },
			Flags:        EventFlags[Tg]{HintLocal: true, PathsState: PathPoisoned},
		})
	} else {
		r.logger.Info("trakka task completed", "task.outputs", stringifyPaths(task.OutputPaths()))

		out.Push(Event[P, Tg]{
			PathSelector: func(*graph.Tracker[P, Tg]) []P { return task.OutputPaths() },
			Flags:        EventFlags[Tg]{HintLocal: true, PathsState: PathUpdated},
		})
	}

	r.mu.Lock()
	state := r.taskStates[task]

	if state == TaskZombie {
		r.tracker = r.tracker.Replaced(graph.ReplacedArgs[P, Tg]{OldTasks: []graph.Task[P]{task}})
		delete(r.tasksByState[TaskZombie], task)
		delete(r.taskStates, task)
	}
	r.mu.Unlock()

	if state != TaskZombie {
		r.setTaskState(task, TaskStopped)
	}
}

// upToDate reports whether every tracked path is up to date or poisoned.
func (r *runner[P, Tg]) upToDate() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, state := range r.pathStates {
		if state != PathUpToDate && state != PathPoisoned {
			return false
		}
	}

	return true
}

func toSet[T comparable](items []T) map[T]struct{} {
	out := make(map[T]struct{}, len(items))
	for _, v := range items {
		out[v] = struct{}{}
	}

	return out
}

func setToSlice[T comparable](set map[T]struct{}) []T {
	out := make([]T, 0, len(set))
	for v := range set {
		out = append(out, v)
	}

	return out
}

func toTaskSet[P comparable](tasks []graph.Task[P]) map[graph.Task[P]]struct{} {
	out := make(map[graph.Task[P]]struct{}, len(tasks))
	for _, t := range tasks {
		out[t] = struct{}{}
	}

	return out
}

func setToTaskSlice[P comparable](set map[graph.Task[P]]struct{}) []graph.Task[P] {
	out := make([]graph.Task[P], 0, len(set))
	for t := range set {
		out = append(out, t)
	}

	return out
}

func stringifyPaths[P comparable](paths []P) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = fmt.Sprint(p)
	}

	return out
}

