package visualize

import (
	"bytes"
	"fmt"
)

// stateColor maps a path/task state label to a Graphviz fill color.
var stateColor = map[string]string{
	"outdated":   "lightgrey",
	"updating":   "lightyellow",
	"up_to_date": "lightgreen",
	"poisoned":   "salmon",
	"stopped":    "white",
	"running":    "lightyellow",
	"zombie":     "salmon",
}

// Graphviz renders snap as a bipartite digraph in Graphviz dot format,
// paths as ellipses and tasks as boxes, each filled by its current state.
func Graphviz(snap Snapshot) string {
	var buffer bytes.Buffer

	buffer.WriteString("digraph Trakka {\n")
	buffer.WriteString("  rankdir=LR;\n")

	for _, p := range snap.Paths {
		color := stateColor[p.State.String()]
		buffer.WriteString(fmt.Sprintf("  %q [shape=ellipse style=filled fillcolor=%q];\n", p.Name, color))
	}

	for _, t := range snap.Tasks {
		color := stateColor[t.State.String()]
		buffer.WriteString(fmt.Sprintf("  %q [shape=box style=filled fillcolor=%q];\n", t.Name, color))

		for _, in := range t.Inputs {
			buffer.WriteString(fmt.Sprintf("  %q -> %q;\n", in, t.Name))
		}

		for _, out := range t.Outputs {
			buffer.WriteString(fmt.Sprintf("  %q -> %q;\n", t.Name, out))
		}
	}

	buffer.WriteString("}")

	return buffer.String()
}
