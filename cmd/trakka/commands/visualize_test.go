package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualizeCommandWritesDotFile(t *testing.T) {
	t.Parallel()

	planPath := writeTestPlan(t, linearPlan)
	outPath := filepath.Join(t.TempDir(), "graph.dot")

	cmd := NewVisualizeCommand()
	cmd.SetArgs([]string{planPath, "--format", "dot", "--output", outPath})

	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "digraph Trakka")
}

func TestVisualizeCommandRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	planPath := writeTestPlan(t, linearPlan)

	cmd := NewVisualizeCommand()
	cmd.SetArgs([]string{planPath, "--format", "svg"})

	require.Error(t, cmd.Execute())
}
