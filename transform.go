package flow

import (
	"fmt"
	"strings"

	"github.com/common-fate/flow/pkg/expr"
	"github.com/common-fate/flow/pkg/node"
)

// transform maps values from the upstream output into workflow variables.
// If any path mapping doesn't resolve, no variables are written.
func (r *run) transform(d node.TransformData, source any) (map[string]any, error) {
	vars := make(map[string]any, len(d.Mappings))
	for i, m := range d.Mappings {
		if m.VariableName == "" {
			return nil, fmt.Errorf("mapping %d has no variable name", i+1)
		}
		switch m.Type {
		case node.MappingStatic:
			vars[m.VariableName] = m.Value

		case node.MappingPath, "":
			path, ok := m.Value.(string)
			if !ok || path == "" {
				return nil, fmt.Errorf("mapping for %s must have a path", m.VariableName)
			}
			v, ok := expr.Extract(source, path)
			if !ok {
				return nil, missingPath(source, path)
			}
			vars[m.VariableName] = v

		default:
			return nil, fmt.Errorf("mapping for %s has unknown type %q", m.VariableName, m.Type)
		}
	}

	r.rc.SetVariables(vars)
	return vars, nil
}

// missingPath describes a path which didn't resolve, listing the keys
// available at the deepest part of the path which did.
func missingPath(source any, path string) error {
	if source == nil {
		return fmt.Errorf("path %q was not found: there is no upstream output", path)
	}
	parent := expr.Parent(path)
	for {
		if v, ok := expr.Extract(source, parent); ok {
			keys := expr.Keys(v)
			available := "(none)"
			if len(keys) > 0 {
				available = strings.Join(keys, ", ")
			}
			at := parent
			if at == "" {
				at = "the upstream output"
			}
			return fmt.Errorf("path %q was not found: available keys at %s: %s", path, at, available)
		}
		parent = expr.Parent(parent)
	}
}
