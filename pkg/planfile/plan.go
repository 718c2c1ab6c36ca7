// Package planfile loads a declarative YAML plan describing a set of
// paths and tasks, validates it against a JSON Schema, and compiles it
// into a [graph.Tracker] carrying the plan's task tags plus a finite
// stream of [runner.Event] values that mark the plan's up_to_date paths.
package planfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is the parsed form of a plan YAML document.
type Plan struct {
	Paths []PathSpec `yaml:"paths"`
	Tasks []TaskSpec `yaml:"tasks"`
}

// PathSpec describes one path and its starting state.
type PathSpec struct {
	Name  string `yaml:"name"`
	State string `yaml:"state"` // "outdated" or "up_to_date"; default "outdated"
}

// TaskSpec describes one task: either a native callable (resolved by the
// caller via Registry, since a YAML document cannot name a Go function
// directly) or a subprocess command.
type TaskSpec struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command,omitempty"`
	Callee  string   `yaml:"callee,omitempty"`
	Inputs  []string `yaml:"inputs,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

// LoadPlan reads and validates the plan at path, returning the parsed Plan.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("planfile: read %s: %w", path, err)
	}

	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("planfile: %s failed schema validation: %w", path, err)
	}

	var plan Plan

	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("planfile: parse %s: %w", path, err)
	}

	return &plan, nil
}
