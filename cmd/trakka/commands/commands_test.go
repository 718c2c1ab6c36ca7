package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestPlan(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const linearPlan = `
paths:
  - name: src/main.go
    state: up_to_date
  - name: bin/app

tasks:
  - name: build
    command: ["true"]
    inputs: ["src/main.go"]
    outputs: ["bin/app"]
`
