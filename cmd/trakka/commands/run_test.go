package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandCompletesLinearPlan(t *testing.T) {
	t.Parallel()

	planPath := writeTestPlan(t, linearPlan)

	cmd := NewRunCommand()
	cmd.SetArgs([]string{planPath, "--quiet"})

	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
}

func TestRunCommandRejectsMissingPlan(t *testing.T) {
	t.Parallel()

	cmd := NewRunCommand()
	cmd.SetArgs([]string{"/nonexistent/plan.yaml", "--quiet"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trakka run")
}
