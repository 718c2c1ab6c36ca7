// Package main provides the entry point for the trakka CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/trakka/cmd/trakka/commands"
	"github.com/Sumatoshi-tech/trakka/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "trakka",
		Short: "Trakka dependency-driven task runner",
		Long: `Trakka runs a plan of tasks and the paths they produce, re-running
only what a change has made outdated.

Commands:
  run        Compile and run a plan to quiescence
  validate   Check a plan document for schema and graph errors
  visualize  Render a plan's path/task graph as Graphviz or HTML
  diff       Compare two plan documents' path sets`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVisualizeCommand())
	rootCmd.AddCommand(commands.NewDiffCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "trakka %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
