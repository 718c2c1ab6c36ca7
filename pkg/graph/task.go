package graph

import "context"

// Task is a side-effecting operation with declared input and output
// paths. Running a task never mutates the task itself, and a task's Run
// must have side effects on the external world only — never on Tracker or
// Runner state.
//
// Implementations must be comparable (usable as a map key): either a
// pointer type (identity equality) or a value type built only from
// comparable fields. Go enforces this at the map-key-usage site rather
// than in the type system, so a Task implemented as a value containing a
// slice or func field will panic if ever placed in a Tracker — document
// this requirement prominently on any concrete Task type.
type Task[P comparable] interface {
	// Run executes the task's side effects. It must be safe to call from
	// any goroutine and must not read or write Runner or Tracker state.
	Run(ctx context.Context) error

	// InputPaths returns the paths this task depends on.
	InputPaths() []P

	// OutputPaths returns the paths this task produces.
	OutputPaths() []P
}
