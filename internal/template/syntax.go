// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// syntax.go - Placeholder syntax for template patterns.
//
// Placeholders are simple named substitutions: $name or ${name} with
// identifiers [A-Za-z_][A-Za-z0-9_]*. $$ escapes a literal dollar
// sign. Anything else containing $ is left untouched.

package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$(?:{([A-Za-z_][A-Za-z0-9_]*)}|([A-Za-z_][A-Za-z0-9_]*)|(\$))`)

// extractVariables returns the variable names referenced by pattern,
// deduplicated, in first-appearance order. Escaped dollar signs are
// not references.
func extractVariables(pattern string) []string {
	if pattern == "" {
		return nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(pattern, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			continue // $$ escape
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// interpolate substitutes every placeholder in pattern from params.
// Callers must have validated that every referenced name is bound.
func interpolate(pattern string, params map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(pattern, func(match string) string {
		if match == "$$" {
			return "$"
		}
		name := match[1:]
		if strings.HasPrefix(name, "{") {
			name = name[1 : len(name)-1]
		}
		return params[name]
	})
}

// stringify renders a YAML scalar value the way it reads in a request
// body or a table cell.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
