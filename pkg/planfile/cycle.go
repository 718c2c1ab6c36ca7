package planfile

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/trakka/pkg/toposort"
)

// taskNodePrefix distinguishes a task's graph node from a path of the same
// name; paths and tasks share one plan-level namespace in a Plan document,
// but toposort.Graph nodes are flat strings.
const taskNodePrefix = "task:"

// DetectCycle reports the first dependency cycle found among plan's tasks
// and the paths they read and write, without building a Tracker. This lets
// `trakka validate` reject a malformed plan before any task construction
// is attempted.
func DetectCycle(plan *Plan) error {
	g := toposort.NewGraph()

	for _, t := range plan.Tasks {
		node := taskNodePrefix + t.Name
		g.AddNode(node)

		for _, in := range t.Inputs {
			g.AddEdge(in, node)
		}

		for _, out := range t.Outputs {
			g.AddEdge(node, out)
		}
	}

	if _, ok := g.Toposort(); ok {
		return nil
	}

	for _, t := range plan.Tasks {
		node := taskNodePrefix + t.Name
		if cycle := g.FindCycle(node); len(cycle) > 0 {
			return fmt.Errorf("planfile: dependency cycle: %s", strings.Join(cleanCycleNames(cycle), " -> "))
		}
	}

	return fmt.Errorf("planfile: dependency cycle detected")
}

func cleanCycleNames(nodes []string) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = strings.TrimPrefix(n, taskNodePrefix)
	}

	return out
}
