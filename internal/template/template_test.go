// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package template

import (
	"errors"
	"testing"
)

// =============================================================================
// EVALUATE
// =============================================================================

func TestEvaluate_SystemOnlyTemplate(t *testing.T) {
	tpl := Template{System: "Reply in French"}

	prompt, system, err := Evaluate(tpl, "How are you?", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "How are you?" {
		t.Errorf("prompt = %q, want input verbatim", prompt)
	}
	if system != "Reply in French" {
		t.Errorf("system = %q, want 'Reply in French'", system)
	}
}

func TestEvaluate_InputPlaceholder(t *testing.T) {
	tpl := Template{Prompt: "Summarize this: $input"}

	prompt, system, err := Evaluate(tpl, "a long document", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "Summarize this: a long document" {
		t.Errorf("prompt = %q", prompt)
	}
	if system != "" {
		t.Errorf("system = %q, want empty", system)
	}
}

func TestEvaluate_InputOverridesCallerParam(t *testing.T) {
	tpl := Template{Prompt: "$input"}
	params := map[string]string{"input": "spoofed"}

	prompt, _, err := Evaluate(tpl, "real input", params)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "real input" {
		t.Errorf("prompt = %q, want 'real input'", prompt)
	}
}

func TestEvaluate_MissingVariable(t *testing.T) {
	tpl := Template{Prompt: "Translate to $language: $input"}

	_, _, err := Evaluate(tpl, "hello", nil)
	var missing *MissingVariablesError
	if !errors.As(err, &missing) {
		t.Fatalf("Evaluate() error = %v, want *MissingVariablesError", err)
	}
	if len(missing.Names) != 1 || missing.Names[0] != "language" {
		t.Errorf("Names = %v, want [language]", missing.Names)
	}
	if missing.Error() != "missing variables: language" {
		t.Errorf("Error() = %q", missing.Error())
	}
}

func TestEvaluate_CollectsMissingAcrossBothPatterns(t *testing.T) {
	tpl := Template{
		Prompt: "Translate $input to ${language}",
		System: "You speak $language with a $dialect accent, $tone",
	}

	_, _, err := Evaluate(tpl, "hi", map[string]string{"tone": "warm"})
	var missing *MissingVariablesError
	if !errors.As(err, &missing) {
		t.Fatalf("Evaluate() error = %v, want *MissingVariablesError", err)
	}

	// Names are deduplicated and keep first-appearance order, prompt
	// pattern first.
	want := []string{"language", "dialect"}
	if len(missing.Names) != len(want) {
		t.Fatalf("Names = %v, want %v", missing.Names, want)
	}
	for i := range want {
		if missing.Names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, missing.Names[i], want[i])
		}
	}
}

func TestEvaluate_DefaultFillsMissing(t *testing.T) {
	tpl := Template{
		Prompt:   "Translate to $language: $input",
		Defaults: map[string]any{"language": "French"},
	}

	prompt, _, err := Evaluate(tpl, "hello", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "Translate to French: hello" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestEvaluate_OverrideBeatsDefault(t *testing.T) {
	tpl := Template{
		Prompt:   "Translate to $language: $input",
		Defaults: map[string]any{"language": "French"},
	}

	prompt, _, err := Evaluate(tpl, "hello", map[string]string{"language": "German"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "Translate to German: hello" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestEvaluate_BracedAndEscapedPlaceholders(t *testing.T) {
	tpl := Template{Prompt: "${greeting}, it costs $$5 to say $greeting"}

	prompt, _, err := Evaluate(tpl, "", map[string]string{"greeting": "hi"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "hi, it costs $5 to say hi" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestEvaluate_SystemPatternInterpolated(t *testing.T) {
	tpl := Template{
		System:   "You are $persona",
		Defaults: map[string]any{"persona": "a pirate"},
	}

	prompt, system, err := Evaluate(tpl, "ahoy", nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if prompt != "ahoy" {
		t.Errorf("prompt = %q, want input verbatim", prompt)
	}
	if system != "You are a pirate" {
		t.Errorf("system = %q", system)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	tpl := Template{
		Prompt:   "$a $b $input",
		Defaults: map[string]any{"a": "x", "b": "y"},
	}

	p1, s1, err1 := Evaluate(tpl, "z", nil)
	p2, s2, err2 := Evaluate(tpl, "z", nil)
	if err1 != nil || err2 != nil {
		t.Fatalf("Evaluate() errors = %v, %v", err1, err2)
	}
	if p1 != p2 || s1 != s2 {
		t.Errorf("runs differ: (%q,%q) vs (%q,%q)", p1, s1, p2, s2)
	}
}

// =============================================================================
// EVALUATE OPTIONS
// =============================================================================

func TestEvaluateOptions_MergeAndStringify(t *testing.T) {
	tpl := Template{
		Options: map[string]any{
			"temperature": 0.5,
			"max_tokens":  256,
			"logprobs":    true,
			"stop":        "END",
		},
	}
	overrides := map[string]any{
		"temperature": 0.9,
		"presence":    1,
	}

	opts := EvaluateOptions(tpl, overrides)

	want := []Option{
		{Name: "logprobs", Value: "true"},
		{Name: "max_tokens", Value: "256"},
		{Name: "presence", Value: "1"},
		{Name: "stop", Value: "END"},
		{Name: "temperature", Value: "0.9"},
	}
	if len(opts) != len(want) {
		t.Fatalf("options = %v, want %v", opts, want)
	}
	for i := range want {
		if opts[i] != want[i] {
			t.Errorf("options[%d] = %v, want %v", i, opts[i], want[i])
		}
	}
}

func TestEvaluateOptions_Empty(t *testing.T) {
	if opts := EvaluateOptions(Template{}, nil); len(opts) != 0 {
		t.Errorf("options = %v, want none", opts)
	}
}

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{"", nil},
		{"no placeholders", nil},
		{"$one and ${two} and $one again", []string{"one", "two"}},
		{"$$escaped only", nil},
		{"$_underscore ok", []string{"_underscore"}},
		{"$1notavar", nil},
	}

	for _, tt := range tests {
		got := extractVariables(tt.pattern)
		if len(got) != len(tt.want) {
			t.Errorf("extractVariables(%q) = %v, want %v", tt.pattern, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("extractVariables(%q)[%d] = %q, want %q", tt.pattern, i, got[i], tt.want[i])
			}
		}
	}
}
