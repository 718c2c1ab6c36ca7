package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/trakka/pkg/planfile"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-plan> <new-plan>",
		Short: "Compare two plan documents' path sets",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}
}

func runDiff(_ *cobra.Command, args []string) error {
	oldPlan, err := planfile.LoadPlan(args[0])
	if err != nil {
		return fmt.Errorf("trakka diff: %w", err)
	}

	newPlan, err := planfile.LoadPlan(args[1])
	if err != nil {
		return fmt.Errorf("trakka diff: %w", err)
	}

	oldText := pathListing(oldPlan)
	newText := pathListing(newPlan)

	dmp := diffmatchpatch.New()

	oldRunes, newRunes, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffMainRunes(oldRunes, newRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	fmt.Fprint(os.Stdout, dmp.DiffPrettyText(diffs))

	return nil
}

func pathListing(plan *planfile.Plan) string {
	names := make([]string, 0, len(plan.Paths))
	for _, p := range plan.Paths {
		names = append(names, p.Name)
	}

	sort.Strings(names)

	return strings.Join(names, "\n") + "\n"
}
