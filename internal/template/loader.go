// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// loader.go - Directory-backed template loading.
//
// A template lives in <dir>/<name>.yaml. The file is either a single
// YAML string, shorthand for a prompt-only template, or a mapping with
// the Template fields. Unknown fields are rejected.

package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads templates by name from a directory of YAML files.
type Loader struct {
	dir string
}

// NewLoader returns a Loader over dir. The directory is not created
// until EnsureDir is called.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Path returns the templates directory.
func (l *Loader) Path() string {
	return l.dir
}

// FilePath returns the definition file path for a template name.
func (l *Loader) FilePath(name string) string {
	return filepath.Join(l.dir, name+".yaml")
}

// EnsureDir creates the templates directory if it does not exist.
func (l *Loader) EnsureDir() error {
	return os.MkdirAll(l.dir, 0755)
}

// Load reads and parses the named template.
func (l *Loader) Load(name string) (Template, error) {
	data, err := os.ReadFile(l.FilePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Template{}, &TemplateError{Name: name, Err: ErrTemplateNotFound}
		}
		return Template{}, &TemplateError{Name: name, Err: err}
	}
	return parse(name, data)
}

// List loads every template in the directory, sorted by name. A
// missing directory lists nothing.
func (l *Loader) List() ([]Template, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)

	templates := make([]Template, 0, len(names))
	for _, name := range names {
		t, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// parse decodes a template definition. The name always comes from the
// file name, overriding any name field in the document.
func parse(name string, data []byte) (Template, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Template{}, &TemplateError{Name: name, Err: fmt.Errorf("%w: %v", ErrInvalidTemplate, err)}
	}

	switch doc.(type) {
	case string:
		// A bare string document is a prompt-only template.
		var prompt string
		if err := yaml.Unmarshal(data, &prompt); err != nil {
			return Template{}, &TemplateError{Name: name, Err: fmt.Errorf("%w: %v", ErrInvalidTemplate, err)}
		}
		return Template{Name: name, Prompt: prompt}, nil
	case map[string]any:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var t Template
		if err := dec.Decode(&t); err != nil {
			return Template{}, &TemplateError{Name: name, Err: fmt.Errorf("%w: %v", ErrInvalidTemplate, err)}
		}
		t.Name = name
		return t, nil
	default:
		return Template{}, &TemplateError{Name: name, Err: fmt.Errorf("%w: expected a string or mapping", ErrInvalidTemplate)}
	}
}
