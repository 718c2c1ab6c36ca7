package runner

import "github.com/Sumatoshi-tech/trakka/pkg/graph"

// Callbacks is a record of optional observer hooks fired on Runner state
// transitions, per spec.md §4.4. Every field defaults to nil (no-op); the
// Runner checks for nil before calling. Callbacks are invoked after the
// transition they describe, once the Runner's mutex has been released; the
// Tracker argument is the snapshot taken right after that transition.
// The Runner applies no locking around the callback bodies themselves.
// OnTaskRunning, OnTaskStopped and OnTaskFailed are called from the task's
// own goroutine, so they can run concurrently with each other and with
// the path and event hooks.
type Callbacks[P comparable, Tg comparable] struct {
	OnTaskRunning  func(tracker *graph.Tracker[P, Tg], task graph.Task[P])
	OnTaskStopped  func(tracker *graph.Tracker[P, Tg], task graph.Task[P])
	OnTaskFailed   func(tracker *graph.Tracker[P, Tg], task graph.Task[P])
	OnPathAdded    func(tracker *graph.Tracker[P, Tg], path P)
	OnPathOutdated func(tracker *graph.Tracker[P, Tg], path P)
	OnPathUpdating func(tracker *graph.Tracker[P, Tg], path P)
	OnPathUpToDate func(tracker *graph.Tracker[P, Tg], path P)
	OnEvent        func(tracker *graph.Tracker[P, Tg], event Event[P, Tg])
}

func (c Callbacks[P, Tg]) fireTaskRunning(tracker *graph.Tracker[P, Tg], task graph.Task[P]) {
	if c.OnTaskRunning != nil {
		c.OnTaskRunning(tracker, task)
	}
}

func (c Callbacks[P, Tg]) fireTaskStopped(tracker *graph.Tracker[P, Tg], task graph.Task[P]) {
	if c.OnTaskStopped != nil {
		c.OnTaskStopped(tracker, task)
	}
}

func (c Callbacks[P, Tg]) fireTaskFailed(tracker *graph.Tracker[P, Tg], task graph.Task[P]) {
	if c.OnTaskFailed != nil {
		c.OnTaskFailed(tracker, task)
	}
}

func (c Callbacks[P, Tg]) firePathAdded(tracker *graph.Tracker[P, Tg], path P) {
	if c.OnPathAdded != nil {
		c.OnPathAdded(tracker, path)
	}
}

func (c Callbacks[P, Tg]) firePathState(tracker *graph.Tracker[P, Tg], path P, state PathState) {
	switch state {
	case PathOutdated:
		if c.OnPathOutdated != nil {
			c.OnPathOutdated(tracker, path)
		}
	case PathUpdating:
		if c.OnPathUpdating != nil {
			c.OnPathUpdating(tracker, path)
		}
	case PathUpToDate:
		if c.OnPathUpToDate != nil {
			c.OnPathUpToDate(tracker, path)
		}
	case PathUpdated, PathPoisoned:
		// PathUpdated never settles (always rewritten before callbacks
		// fire); PathPoisoned has no dedicated hook in spec.md §4.4.
	}
}

func (c Callbacks[P, Tg]) fireEvent(tracker *graph.Tracker[P, Tg], event Event[P, Tg]) {
	if c.OnEvent != nil {
		c.OnEvent(tracker, event)
	}
}
