package planfile

import (
	"fmt"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
	"github.com/Sumatoshi-tech/trakka/pkg/scripting"
)

// Registry resolves a TaskSpec.Callee name to the Go function it names.
// A plan document can only reference native callables this way since YAML
// has no means to embed executable code.
type Registry map[string]scripting.Callee

// Compiled is the result of compiling a Plan: a Tracker ready to run, and
// an Event stream recreating the plan's initial path-state overrides.
type Compiled struct {
	Tracker *graph.Tracker[graph.TuplePath, string]
	Events  []runner.Event[graph.TuplePath, string]
}

// Compile builds a Tracker and initial Event stream from plan. registry
// resolves any TaskSpec that names a callee instead of a subprocess
// command; it may be nil if the plan uses only command tasks.
func Compile(plan *Plan, registry Registry) (*Compiled, error) {
	builder := scripting.NewBuilder()

	taskTags := map[graph.Task[graph.TuplePath]][]string{}

	for _, spec := range plan.Tasks {
		task, err := compileTask(builder, spec, registry)
		if err != nil {
			return nil, fmt.Errorf("planfile: task %q: %w", spec.Name, err)
		}

		if len(spec.Tags) > 0 {
			taskTags[task] = append([]string{}, spec.Tags...)
		}
	}

	tracker := builder.Tracker()

	if len(taskTags) > 0 {
		tracker = tracker.Replaced(graph.ReplacedArgs[graph.TuplePath, string]{
			NewTaggedTasks: taskTags,
		})
	}

	events := make([]runner.Event[graph.TuplePath, string], 0, len(plan.Paths))

	for _, p := range plan.Paths {
		if p.State != "up_to_date" {
			continue
		}

		pathName := graph.NewTuplePath(p.Name)
		events = append(events, runner.Event[graph.TuplePath, string]{
			PathSelector: func(*graph.Tracker[graph.TuplePath, string]) []graph.TuplePath {
				return []graph.TuplePath{pathName}
			},
			Flags: runner.EventFlags[string]{PathsState: runner.PathUpToDate},
		})
	}

	return &Compiled{Tracker: tracker, Events: events}, nil
}

func compileTask(builder *scripting.Builder, spec TaskSpec, registry Registry) (graph.Task[graph.TuplePath], error) {
	inputs := tuplePaths(spec.Inputs)
	outputs := tuplePaths(spec.Outputs)

	switch {
	case len(spec.Command) > 0:
		return builder.Command(spec.Command, inputs, outputs), nil
	case spec.Callee != "":
		callee, ok := registry[spec.Callee]
		if !ok {
			return nil, fmt.Errorf("unknown callee %q (check the registry passed to Compile)", spec.Callee)
		}

		return builder.Task(callee, inputs, outputs), nil
	default:
		return nil, fmt.Errorf("task must set either command or callee")
	}
}

func tuplePaths(names []string) []graph.TuplePath {
	out := make([]graph.TuplePath, len(names))
	for i, n := range names {
		out[i] = graph.NewTuplePath(n)
	}

	return out
}
