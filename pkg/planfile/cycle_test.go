package planfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/trakka/pkg/planfile"
)

func TestDetectCycleCatchesSelfLoop(t *testing.T) {
	t.Parallel()

	path := writePlan(t, `
tasks:
  - name: build
    command: ["true"]
    inputs: ["a"]
    outputs: ["a"]
`)

	plan, err := planfile.LoadPlan(path)
	require.NoError(t, err)

	err = planfile.DetectCycle(plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDetectCycleCatchesTwoTaskLoop(t *testing.T) {
	t.Parallel()

	path := writePlan(t, `
tasks:
  - name: a
    command: ["true"]
    inputs: ["y"]
    outputs: ["x"]
  - name: b
    command: ["true"]
    inputs: ["x"]
    outputs: ["y"]
`)

	plan, err := planfile.LoadPlan(path)
	require.NoError(t, err)

	err = planfile.DetectCycle(plan)
	require.Error(t, err)
}

func TestDetectCycleAcceptsLinearChain(t *testing.T) {
	t.Parallel()

	path := writePlan(t, `
tasks:
  - name: a
    command: ["true"]
    inputs: ["in"]
    outputs: ["mid"]
  - name: b
    command: ["true"]
    inputs: ["mid"]
    outputs: ["out"]
`)

	plan, err := planfile.LoadPlan(path)
	require.NoError(t, err)

	assert.NoError(t, planfile.DetectCycle(plan))
}
