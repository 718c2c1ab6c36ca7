package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffCommandComparesPathSets(t *testing.T) {
	t.Parallel()

	oldPath := writeTestPlan(t, `
paths:
  - name: a
  - name: b
`)
	newPath := writeTestPlan(t, `
paths:
  - name: a
  - name: c
`)

	cmd := NewDiffCommand()
	cmd.SetArgs([]string{oldPath, newPath})

	require.NoError(t, cmd.Execute())
}

func TestDiffCommandRejectsMissingPlan(t *testing.T) {
	t.Parallel()

	existing := writeTestPlan(t, `
paths:
  - name: a
`)

	cmd := NewDiffCommand()
	cmd.SetArgs([]string{existing, "/nonexistent/plan.yaml"})

	require.Error(t, cmd.Execute())
}
