package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/trakka/pkg/graph"
	"github.com/Sumatoshi-tech/trakka/pkg/planfile"
	"github.com/Sumatoshi-tech/trakka/pkg/runner"
	"github.com/Sumatoshi-tech/trakka/pkg/visualize"
)

// VisualizeCommand holds configuration for the visualize command.
type VisualizeCommand struct {
	format string
	output string
}

// NewVisualizeCommand creates the visualize command.
func NewVisualizeCommand() *cobra.Command {
	vc := &VisualizeCommand{}

	cmd := &cobra.Command{
		Use:   "visualize [plan]",
		Short: "Render a plan's path/task graph as Graphviz or HTML",
		Args:  cobra.ExactArgs(1),
		RunE:  vc.run,
	}

	cmd.Flags().StringVar(&vc.format, "format", "dot", "Output format: dot, html")
	cmd.Flags().StringVarP(&vc.output, "output", "o", "", "Output file path (default: stdout)")

	return cmd
}

func (vc *VisualizeCommand) run(_ *cobra.Command, args []string) error {
	plan, err := planfile.LoadPlan(args[0])
	if err != nil {
		return fmt.Errorf("trakka visualize: %w", err)
	}

	compiled, err := planfile.Compile(plan, nil)
	if err != nil {
		return fmt.Errorf("trakka visualize: %w", err)
	}

	snap := visualize.NewSnapshot(
		compiled.Tracker,
		map[graph.TuplePath]runner.PathState{},
		map[graph.Task[graph.TuplePath]]runner.TaskState{},
		nil,
	)

	out := os.Stdout

	if vc.output != "" {
		f, createErr := os.Create(vc.output)
		if createErr != nil {
			return fmt.Errorf("trakka visualize: %w", createErr)
		}
		defer f.Close()

		out = f
	}

	switch vc.format {
	case "dot":
		_, writeErr := fmt.Fprint(out, visualize.Graphviz(snap))
		return writeErr
	case "html":
		return visualize.HTML(snap, out)
	default:
		return fmt.Errorf("trakka visualize: unknown format %q (want dot or html)", vc.format)
	}
}
