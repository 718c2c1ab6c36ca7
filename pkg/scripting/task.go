// Package scripting wraps plain Go callables and subprocess commands as
// [graph.Task] values, and provides a Builder that assembles them into a
// Tracker without requiring callers to hand-write path/task sets.
package scripting

import (
	"context"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
)

// TaskPathTag is the first component of every path a Builder generates to
// uniquely identify one of its own tasks: a path of the form
// (TaskPathTag, <sequence number>) that is never chosen by ordinary task
// inputs/outputs, mirroring g_runner's TASK_PATH_TAG sentinel.
const TaskPathTag = "task"

// Callee is the side-effecting function a ScriptedTask wraps. By contract
// it must have no externally visible side effects beyond what its
// declared input/output paths describe.
type Callee func(ctx context.Context) error

// ScriptedTask adapts a plain Go function to [graph.Task]. Two
// ScriptedTasks are never equal even if built from an identical Callee and
// path set: Go gives functions no structural equality, so Builder relies on
// pointer identity of the returned *ScriptedTask instead, exactly as a
// caller holding a ScriptedTask reference would expect.
type ScriptedTask struct {
	callee  Callee
	inputs  []graph.TuplePath
	outputs []graph.TuplePath
}

// NewScriptedTask builds a ScriptedTask directly, without a Builder.
func NewScriptedTask(callee Callee, inputs, outputs []graph.TuplePath) *ScriptedTask {
	return &ScriptedTask{callee: callee, inputs: inputs, outputs: outputs}
}

// Run invokes the wrapped callee.
func (t *ScriptedTask) Run(ctx context.Context) error {
	return t.callee(ctx)
}

// InputPaths returns the task's declared input paths.
func (t *ScriptedTask) InputPaths() []graph.TuplePath { return t.inputs }

// OutputPaths returns the task's declared output paths.
func (t *ScriptedTask) OutputPaths() []graph.TuplePath { return t.outputs }
