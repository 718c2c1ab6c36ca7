package graph

import "errors"

// ErrInvalidTracker is returned by Valid when a Tracker violates one of
// the invariants in spec.md §3.
var ErrInvalidTracker = errors.New("graph: invalid tracker")
