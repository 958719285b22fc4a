// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package template provides named prompt templates with variable
// interpolation.
//
// A template pairs a prompt pattern with an optional system pattern,
// default variable values, and model options. Patterns reference
// variables as $name or ${name}; $$ is a literal dollar sign. The
// caller's input text is always available as $input.
//
// # Key Types
//
//   - Template: immutable template definition
//   - Loader: loads templates by name from a directory of YAML files
//   - Watcher: reports template file changes for long-running commands
//   - MissingVariablesError: every unbound variable, found up front
//
// # Usage
//
// Evaluate a template against user input:
//
//	tpl, err := loader.Load("summarize")
//	if err != nil {
//		return err
//	}
//	prompt, system, err := template.Evaluate(tpl, input, params)
//
// Evaluation validates both patterns completely before substituting
// anything, so a failure never produces partial output.
package template
