// Package graph implements the Tracker: a persistent, copy-on-write
// bipartite graph of paths (abstract named artifacts) and tasks
// (side-effecting operations with declared input and output paths), with
// secondary indexes by input path, output path, and tag.
//
// The Tracker is the only mutable-by-replacement component in this
// package; every exported mutation returns a new Tracker value rather than
// modifying the receiver.
package graph

import "strings"

// StringPath is the canonical scalar realization of a Path: an opaque
// named artifact identified by a single string.
type StringPath string

// TuplePath is the canonical "tuple of scalars" realization of a Path
// described by spec.md §3. Two TuplePaths are equal (and hash identically
// as map keys) iff they join to the same string, so construct them with a
// separator that cannot appear inside a component.
type TuplePath string

// NewTuplePath joins components into a single comparable TuplePath value.
// The components must not themselves contain the NUL byte, which is used
// internally as a separator.
func NewTuplePath(components ...string) TuplePath {
	return TuplePath(strings.Join(components, "\x00"))
}

// Components splits a TuplePath back into its constituent scalars.
func (p TuplePath) Components() []string {
	if p == "" {
		return nil
	}

	return strings.Split(string(p), "\x00")
}
