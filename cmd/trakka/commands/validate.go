package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/trakka/pkg/planfile"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [plan]",
		Short: "Check a plan document for schema and graph errors",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(_ *cobra.Command, args []string) error {
	plan, err := planfile.LoadPlan(args[0])
	if err != nil {
		fmt.Fprintf(os.Stdout, "invalid: %v\n", err)
		return err
	}

	if err := planfile.DetectCycle(plan); err != nil {
		fmt.Fprintf(os.Stdout, "invalid: %v\n", err)
		return err
	}

	fmt.Fprintf(os.Stdout, "valid: %d path(s), %d task(s)\n", len(plan.Paths), len(plan.Tasks))

	return nil
}
