package backend

import (
	"maps"
	"strings"
)

const inputKey = "input_data"

// unwrapInputSchema returns the schema of the single input_data argument
// that wrapped backends declare, with a top-level $ref into $defs resolved.
// Schemas without that shape are returned unchanged.
func unwrapInputSchema(schema map[string]any) map[string]any {
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) != 1 {
		return schema
	}
	inner, ok := props[inputKey].(map[string]any)
	if !ok {
		return schema
	}

	defs, _ := schema["$defs"].(map[string]any)
	if ref, ok := inner["$ref"].(string); ok {
		name, found := strings.CutPrefix(ref, "#/$defs/")
		if !found {
			return schema
		}
		resolved, ok := defs[name].(map[string]any)
		if !ok {
			return schema
		}
		inner = resolved
	}

	out := maps.Clone(inner)
	if _, ok := out["$defs"]; !ok && len(defs) > 0 {
		// nested refs still point at the outer definitions
		out["$defs"] = defs
	}
	return out
}

// wrapInput nests params under input_data unless the caller already did.
func wrapInput(params map[string]any) map[string]any {
	if len(params) == 1 {
		if _, ok := params[inputKey].(map[string]any); ok {
			return params
		}
	}
	return map[string]any{inputKey: params}
}
