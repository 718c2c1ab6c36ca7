package scripting

import (
	"strconv"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
)

// Builder assembles a [graph.Tracker] one task at a time, the way
// g_runner's TrackerBuilder lets a script add callable or command-line
// tasks without hand-assembling path/task sets.
type Builder struct {
	tracker  *graph.Tracker[graph.TuplePath, string]
	nextID   int
	taskPath map[graph.Task[graph.TuplePath]]graph.TuplePath
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		tracker:  graph.New[graph.TuplePath, string](),
		taskPath: map[graph.Task[graph.TuplePath]]graph.TuplePath{},
	}
}

// Tracker returns the Tracker assembled so far.
func (b *Builder) Tracker() *graph.Tracker[graph.TuplePath, string] {
	return b.tracker
}

// TaskPath returns the synthetic path the Builder generated to track task,
// or the zero TuplePath if task was not added through this Builder.
func (b *Builder) TaskPath(task graph.Task[graph.TuplePath]) graph.TuplePath {
	return b.taskPath[task]
}

func (b *Builder) nextTaskPath() graph.TuplePath {
	b.nextID++
	return graph.NewTuplePath(TaskPathTag, strconv.Itoa(b.nextID))
}

// Task adds a ScriptedTask wrapping callee, with inputs/outputs as its
// declared paths. The returned task's OutputPaths also include a synthetic
// path unique to this task, so other tasks can depend on "this task having
// run" without naming one of its real outputs.
func (b *Builder) Task(callee Callee, inputs, outputs []graph.TuplePath) *ScriptedTask {
	taskPath := b.nextTaskPath()

	fullOutputs := make([]graph.TuplePath, 0, len(outputs)+1)
	fullOutputs = append(fullOutputs, outputs...)
	fullOutputs = append(fullOutputs, taskPath)

	task := NewScriptedTask(callee, inputs, fullOutputs)

	b.taskPath[task] = taskPath
	b.tracker = b.tracker.Replaced(graph.ReplacedArgs[graph.TuplePath, string]{
		NewPaths: append(append([]graph.TuplePath{}, inputs...), fullOutputs...),
		NewTasks: []graph.Task[graph.TuplePath]{task},
	})

	return task
}

// Command adds a CommandTask running command, with inputs/outputs as its
// declared paths, following the same synthetic-task-path convention as
// Task.
func (b *Builder) Command(command []string, inputs, outputs []graph.TuplePath) *CommandTask {
	taskPath := b.nextTaskPath()

	fullOutputs := make([]graph.TuplePath, 0, len(outputs)+1)
	fullOutputs = append(fullOutputs, outputs...)
	fullOutputs = append(fullOutputs, taskPath)

	task := NewCommandTask(command, inputs, fullOutputs)

	b.taskPath[task] = taskPath
	b.tracker = b.tracker.Replaced(graph.ReplacedArgs[graph.TuplePath, string]{
		NewPaths: append(append([]graph.TuplePath{}, inputs...), fullOutputs...),
		NewTasks: []graph.Task[graph.TuplePath]{task},
	})

	return task
}
