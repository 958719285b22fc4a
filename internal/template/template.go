// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// template.go - Template definition and evaluation.

package template

import (
	"sort"
)

// InputVariable is the reserved variable bound to the caller's input
// text. A caller-supplied parameter of the same name is overridden.
const InputVariable = "input"

// Template is a named, reusable prompt definition. A template with no
// Prompt pattern is system-only: evaluation passes the caller's input
// through as the prompt verbatim and interpolates only System.
type Template struct {
	Name     string         `yaml:"name,omitempty"`
	Prompt   string         `yaml:"prompt,omitempty"`
	System   string         `yaml:"system,omitempty"`
	Model    string         `yaml:"model,omitempty"`
	Defaults map[string]any `yaml:"defaults,omitempty"`
	Options  map[string]any `yaml:"options,omitempty"`
}

// Option is one resolved model option, stringified for display or for
// a request body.
type Option struct {
	Name  string
	Value string
}

// Evaluate renders the template's prompt and system patterns against
// input and params. The effective parameter set is params with input
// bound to $input and template defaults filling any remaining gaps.
// Both patterns are validated completely before any substitution; an
// unbound variable in either fails with *MissingVariablesError naming
// every missing variable.
func Evaluate(t Template, input string, params map[string]string) (prompt, system string, err error) {
	eff := make(map[string]string, len(params)+len(t.Defaults)+1)
	for k, v := range params {
		eff[k] = v
	}
	eff[InputVariable] = input
	for k, v := range t.Defaults {
		if _, ok := eff[k]; !ok {
			eff[k] = stringify(v)
		}
	}

	var missing []string
	seen := make(map[string]bool)
	for _, pattern := range []string{t.Prompt, t.System} {
		for _, name := range extractVariables(pattern) {
			if _, ok := eff[name]; !ok && !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return "", "", &MissingVariablesError{Names: missing}
	}

	if t.System != "" {
		system = interpolate(t.System, eff)
	}
	if t.Prompt == "" {
		return input, system, nil
	}
	return interpolate(t.Prompt, eff), system, nil
}

// EvaluateOptions merges the template's declared options with the
// caller's overrides (overrides win on collision) and returns the
// result stringified and sorted by name.
func EvaluateOptions(t Template, overrides map[string]any) []Option {
	merged := make(map[string]any, len(t.Options)+len(overrides))
	for k, v := range t.Options {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)

	opts := make([]Option, 0, len(names))
	for _, k := range names {
		opts = append(opts, Option{Name: k, Value: stringify(merged[k])})
	}
	return opts
}
