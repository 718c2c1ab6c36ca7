package planfile

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// planSchema is the JSON Schema every plan document must satisfy, checked
// before the document is unmarshalled into a Plan.
const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "paths": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "state": {"type": "string", "enum": ["outdated", "up_to_date"]}
        }
      }
    },
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "command": {"type": "array", "items": {"type": "string"}},
          "callee": {"type": "string"},
          "inputs": {"type": "array", "items": {"type": "string"}},
          "outputs": {"type": "array", "items": {"type": "string"}},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Validate checks raw (a YAML plan document) against planSchema. YAML is
// decoded into a generic tree first since gojsonschema validates JSON-shaped
// data, not YAML syntax directly.
func Validate(raw []byte) error {
	var doc any

	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("planfile: invalid yaml: %w", err)
	}

	doc = normalizeForSchema(doc)

	schemaLoader := gojsonschema.NewStringLoader(planSchema)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("planfile: schema validation error: %w", err)
	}

	if !result.Valid() {
		msg := "planfile: schema violations:"
		for _, verr := range result.Errors() {
			msg += "\n  - " + verr.String()
		}

		return fmt.Errorf("%s", msg) //nolint:err113 // aggregated message, no single sentinel applies
	}

	return nil
}

// normalizeForSchema recursively copies decoded map[string]any and []any
// values, the shapes gojsonschema's Go loader expects. Values of any other
// type, including a map[any]any, are returned unchanged.
func normalizeForSchema(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeForSchema(elem)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeForSchema(elem)
		}

		return out
	default:
		return v
	}
}
