// Package visualize renders a Tracker's current path/task state as a
// Graphviz digest or an interactive HTML graph, for "what's outdated and
// why" debugging.
package visualize

import (
	"sort"
	"strconv"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
)

// PathNode is one path in a Snapshot, labeled by its current state.
type PathNode struct {
	Name  string
	State runner.PathState
}

// TaskNode is one task in a Snapshot, labeled by its current state and the
// paths it connects.
type TaskNode struct {
	Name    string
	State   runner.TaskState
	Inputs  []string
	Outputs []string
}

// Snapshot is an immutable rendering of a Tracker plus the Runner's
// current path/task states, detached from any live Runner so it can be
// rendered after the run has finished.
type Snapshot struct {
	Paths []PathNode
	Tasks []TaskNode
}

// TaskNamer assigns a human-readable name to a task for rendering, since
// graph.Task values carry no name of their own.
type TaskNamer[P comparable] func(task graph.Task[P], index int) string

// NewSnapshot builds a Snapshot from a Tracker and the path/task state maps
// a Runner exposes through its callback hooks (see runner.Callbacks).
func NewSnapshot(
	tracker *graph.Tracker[graph.TuplePath, string],
	pathStates map[graph.TuplePath]runner.PathState,
	taskStates map[graph.Task[graph.TuplePath]]runner.TaskState,
	namer TaskNamer[graph.TuplePath],
) Snapshot {
	paths := tracker.Paths()
	sort.Slice(paths, func(i, j int) bool { return string(paths[i]) < string(paths[j]) })

	pathNodes := make([]PathNode, 0, len(paths))
	for _, p := range paths {
		pathNodes = append(pathNodes, PathNode{Name: string(p), State: pathStates[p]})
	}

	tasks := tracker.Tasks()

	taskNodes := make([]TaskNode, 0, len(tasks))

	for i, task := range tasks {
		name := defaultTaskName(i)
		if namer != nil {
			name = namer(task, i)
		}

		taskNodes = append(taskNodes, TaskNode{
			Name:    name,
			State:   taskStates[task],
			Inputs:  stringifyTuplePaths(task.InputPaths()),
			Outputs: stringifyTuplePaths(task.OutputPaths()),
		})
	}

	sort.Slice(taskNodes, func(i, j int) bool { return taskNodes[i].Name < taskNodes[j].Name })

	return Snapshot{Paths: pathNodes, Tasks: taskNodes}
}

func defaultTaskName(index int) string {
	return "task-" + strconv.Itoa(index)
}

func stringifyTuplePaths(paths []graph.TuplePath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = string(p)
	}

	return out
}
