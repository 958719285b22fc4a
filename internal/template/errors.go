// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Typed errors for template evaluation and loading.

package template

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for template loading.
var (
	// ErrTemplateNotFound indicates no definition exists for the name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidTemplate indicates the definition exists but cannot be
	// parsed into a template.
	ErrInvalidTemplate = errors.New("invalid template")
)

// MissingVariablesError reports every referenced variable with no
// binding, across both the prompt and system patterns. It is returned
// before any substitution takes place.
type MissingVariablesError struct {
	Names []string
}

// Error implements the error interface.
func (e *MissingVariablesError) Error() string {
	return "missing variables: " + strings.Join(e.Names, ", ")
}

// TemplateError wraps a loading failure with the template name.
type TemplateError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Err
}
