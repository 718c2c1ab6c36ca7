package runner

import "github.com/Sumatoshi-tech/trakka/pkg/graph"

// EventFlags carries the per-event directives described in spec.md §4.2.
// All fields default to their zero value when an Event is built with a
// struct literal, matching the "all fields default-absent" contract:
// PathsState defaults to PathOutdated, which callers must set explicitly
// when they mean something else (there is no sentinel "absent" PathState
// distinct from PathOutdated, since every event that touches paths must
// name a target state).
type EventFlags[Tg comparable] struct {
	// HintLocal signals that this event arises from the runner's own task
	// execution and therefore need not quiesce the world. Opaque to
	// correctness; carried for observability and optimization only.
	HintLocal bool

	// PathsState is the target state for paths that remain selected after
	// regeneration.
	PathsState PathState

	// TasksTagsSet distinguishes "no tag change" (false) from "replace the
	// tag set with TasksTags, possibly empty" (true) — Go has no implicit
	// "present but nil" distinction for slices, so this is explicit.
	TasksTagsSet bool
	TasksTags    []Tg

	// RemovedTasksOutdatePaths: when a task is removed as part of this
	// event, its former output paths transition to PathOutdated.
	RemovedTasksOutdatePaths bool
}

// PathSelector chooses a set of paths from the current tracker snapshot.
// It must be pure with respect to runner state.
type PathSelector[P comparable, Tg comparable] func(tracker *graph.Tracker[P, Tg]) []P

// PathRegenerator replaces a path selection with a new one.
type PathRegenerator[P comparable, Tg comparable] func(tracker *graph.Tracker[P, Tg], selected []P) []P

// TaskSelector chooses a set of tasks from the current tracker snapshot.
type TaskSelector[P comparable, Tg comparable] func(tracker *graph.Tracker[P, Tg]) []graph.Task[P]

// TaskRegenerator replaces a task selection with a new one.
type TaskRegenerator[P comparable, Tg comparable] func(tracker *graph.Tracker[P, Tg], selected []graph.Task[P]) []graph.Task[P]

// Event is a declarative instruction for the Runner to apply: select
// paths and/or tasks, optionally regenerate the selection, and transition
// survivors per Flags. A zero-value Event (no selectors) performs no
// path- or task-side action but still fires the OnEvent callback.
type Event[P comparable, Tg comparable] struct {
	PathSelector    PathSelector[P, Tg]
	PathRegenerator PathRegenerator[P, Tg]
	TaskSelector    TaskSelector[P, Tg]
	TaskRegenerator TaskRegenerator[P, Tg]
	Flags           EventFlags[Tg]
}
