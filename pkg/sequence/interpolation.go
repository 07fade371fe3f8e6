package sequence

import (
	"fmt"
	"regexp"
	"strings"
)

// variablePattern matches {{ variable }} templates.
var variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Interpolate replaces {{ variable }} placeholders in s with values from
// vars. Undefined variables are left unchanged.
func Interpolate(s string, vars map[string]any) string {
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := variablePattern.FindStringSubmatch(match)
		value, ok := vars[sub[1]]
		if !ok {
			return match
		}
		return valueToString(value)
	})
}

// interpolateParams returns a copy of params with placeholders replaced. A
// string that is exactly one reference keeps the variable's type.
func interpolateParams(params map[string]any, vars map[string]any) map[string]any {
	result := make(map[string]any, len(params))
	for k, v := range params {
		result[k] = interpolateValue(v, vars)
	}
	return result
}

func interpolateValue(value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if loc := variablePattern.FindAllStringSubmatchIndex(trimmed, -1); len(loc) == 1 &&
			loc[0][0] == 0 && loc[0][1] == len(trimmed) {
			name := trimmed[loc[0][2]:loc[0][3]]
			if val, ok := vars[name]; ok {
				return val
			}
			return v
		}
		return Interpolate(v, vars)

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = interpolateValue(val, vars)
		}
		return result

	default:
		return value
	}
}

// valueToString converts a value to its string representation.
func valueToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
