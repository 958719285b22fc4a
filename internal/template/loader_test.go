// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}

func TestLoader_BareStringIsPromptOnly(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "poem", "Write a poem about $input")

	tpl, err := NewLoader(dir).Load("poem")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tpl.Name != "poem" {
		t.Errorf("Name = %q, want 'poem'", tpl.Name)
	}
	if tpl.Prompt != "Write a poem about $input" {
		t.Errorf("Prompt = %q", tpl.Prompt)
	}
	if tpl.System != "" {
		t.Errorf("System = %q, want empty", tpl.System)
	}
}

func TestLoader_MappingDocument(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "translate", `
prompt: "Translate to $language: $input"
system: You are a translator
model: gpt-4
defaults:
  language: French
options:
  temperature: 0.2
`)

	tpl, err := NewLoader(dir).Load("translate")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tpl.Model != "gpt-4" {
		t.Errorf("Model = %q, want 'gpt-4'", tpl.Model)
	}
	if tpl.System != "You are a translator" {
		t.Errorf("System = %q", tpl.System)
	}
	if got := tpl.Defaults["language"]; got != "French" {
		t.Errorf("Defaults[language] = %v, want 'French'", got)
	}
	if got := tpl.Options["temperature"]; got != 0.2 {
		t.Errorf("Options[temperature] = %v, want 0.2", got)
	}
}

func TestLoader_FileNameWinsOverNameField(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "actual", "name: imposter\nprompt: hi\n")

	tpl, err := NewLoader(dir).Load("actual")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tpl.Name != "actual" {
		t.Errorf("Name = %q, want 'actual'", tpl.Name)
	}
}

func TestLoader_NotFound(t *testing.T) {
	loader := NewLoader(t.TempDir())

	_, err := loader.Load("ghost")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Load() error = %v, want ErrTemplateNotFound", err)
	}

	var terr *TemplateError
	if !errors.As(err, &terr) || terr.Name != "ghost" {
		t.Errorf("error does not carry the template name: %v", err)
	}
}

func TestLoader_UnknownFieldIsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "odd", "prompt: hi\nbogus_field: nope\n")

	_, err := NewLoader(dir).Load("odd")
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("Load() error = %v, want ErrInvalidTemplate", err)
	}
}

func TestLoader_ListDocumentIsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "seq", "- one\n- two\n")

	_, err := NewLoader(dir).Load("seq")
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("Load() error = %v, want ErrInvalidTemplate", err)
	}
}

func TestLoader_ListSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "zeta", "last prompt")
	writeTemplate(t, dir, "alpha", "first prompt")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	templates, err := NewLoader(dir).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("List() returned %d templates, want 2", len(templates))
	}
	if templates[0].Name != "alpha" || templates[1].Name != "zeta" {
		t.Errorf("List() order = [%s, %s], want [alpha, zeta]", templates[0].Name, templates[1].Name)
	}
}

func TestLoader_ListMissingDir(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope"))

	templates, err := loader.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("List() = %v, want empty", templates)
	}
}
