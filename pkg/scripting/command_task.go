package scripting

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
)

// CommandTask runs an external command as its side effect, wrapping
// g_runner's CommandLineTask. Equality is pointer identity, same as
// ScriptedTask.
type CommandTask struct {
	command []string
	dir     string
	env     []string
	inputs  []graph.TuplePath
	outputs []graph.TuplePath
}

// NewCommandTask builds a CommandTask that runs command (argv form, no
// shell) with inputs/outputs as its declared paths.
func NewCommandTask(command []string, inputs, outputs []graph.TuplePath) *CommandTask {
	return &CommandTask{command: command, inputs: inputs, outputs: outputs}
}

// WithDir sets the working directory the command runs in.
func (t *CommandTask) WithDir(dir string) *CommandTask {
	t.dir = dir
	return t
}

// WithEnv sets additional environment variables (KEY=VALUE form), appended
// to the process's inherited environment.
func (t *CommandTask) WithEnv(env []string) *CommandTask {
	t.env = env
	return t
}

// Run executes the wrapped command, returning a wrapped error on non-zero
// exit or launch failure.
func (t *CommandTask) Run(ctx context.Context) error {
	if len(t.command) == 0 {
		return errors.New("scripting: command task has no command")
	}

	cmd := exec.CommandContext(ctx, t.command[0], t.command[1:]...)
	cmd.Dir = t.dir

	if len(t.env) > 0 {
		cmd.Env = append(cmd.Environ(), t.env...)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "command %q failed: %s", t.command, fmt.Sprintf("%.512s", out))
	}

	return nil
}

// InputPaths returns the task's declared input paths.
func (t *CommandTask) InputPaths() []graph.TuplePath { return t.inputs }

// OutputPaths returns the task's declared output paths.
func (t *CommandTask) OutputPaths() []graph.TuplePath { return t.outputs }
