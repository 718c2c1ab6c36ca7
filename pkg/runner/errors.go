package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTaskNotStopped is a contract-violation error describing a task found
// outside the stopped state. No function in this package returns it.
var ErrTaskNotStopped = errors.New("runner: task was not in the stopped state")

// AggregateError is raised by RunTracker when a run ends with one or more
// task failures. It carries the ordered list of captured exceptions
// (spec.md §7) and supports errors.Is/errors.As against any individual
// wrapped failure via Unwrap.
type AggregateError struct {
	Failures []error
}

func newAggregateError(failures []error) error {
	if len(failures) == 0 {
		return nil
	}

	ordered := make([]error, len(failures))
	copy(ordered, failures)

	return &AggregateError{Failures: ordered}
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "trakka: %d task failure(s) during run", len(e.Failures))

	for _, failure := range e.Failures {
		b.WriteString("\n  - ")
		b.WriteString(failure.Error())
	}

	return b.String()
}

// Unwrap exposes every captured failure so callers can errors.Is/As
// against a specific sentinel among many (Go 1.20+ multi-error unwrap).
func (e *AggregateError) Unwrap() []error {
	return e.Failures
}
