package reporting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RenderYAML renders the report metadata, counts and full summary as YAML.
func RenderYAML(r *Report) ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report yaml: %w", err)
	}
	return out, nil
}

// RenderJSON renders the flat summary, the same document GET /api/stats serves.
func RenderJSON(r *Report) ([]byte, error) {
	out, err := json.MarshalIndent(r.Summary.Flatten(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report json: %w", err)
	}
	return append(out, '\n'), nil
}
