// Package flatten converts nested webhook payloads into single-level records.
package flatten

import (
	"fmt"
	"strings"
)

// Separator joins path segments in flattened keys.
const Separator = "_"

// Flatten recursively walks a nested payload and returns a single-level map
// keyed by underscore-joined paths.
//
// Nested maps are merged into the result under their prefixed keys. Slices are
// classified by their first element: a slice of maps is expanded with the
// element index as a path segment, anything else is joined into one
// comma-separated string. Mixed slices follow whatever the first element is;
// later elements of the other kind are dropped. Downstream column shapes
// depend on this, so it stays.
func Flatten(data map[string]any) map[string]any {
	result := make(map[string]any, len(data))
	flattenInto(result, data, "")
	return result
}

func flattenInto(result map[string]any, data map[string]any, prefix string) {
	for key, value := range data {
		newKey := key
		if prefix != "" {
			newKey = prefix + Separator + key
		}

		switch v := value.(type) {
		case map[string]any:
			flattenInto(result, v, newKey)
		case []any:
			if len(v) > 0 {
				if _, ok := v[0].(map[string]any); ok {
					for idx, item := range v {
						sub, ok := item.(map[string]any)
						if !ok {
							continue
						}
						flattenInto(result, sub, fmt.Sprintf("%s%s%d", newKey, Separator, idx))
					}
					continue
				}
			}
			result[newKey] = joinScalars(v)
		default:
			result[newKey] = value
		}
	}
}

func joinScalars(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Stringify(item)
	}
	return strings.Join(parts, ", ")
}

// Stringify renders a scalar payload value the way it is persisted and
// compared. JSON numbers arrive as float64; integral values print without a
// decimal point.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
