// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "keys.json"))
}

func TestSetCreatesFileWithNote(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("openai", "sk-test-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reading keys file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Do not share!") {
		t.Errorf("keys file missing note:\n%s", content)
	}
	if !strings.HasSuffix(content, "\n") {
		t.Error("keys file should end with a newline")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.Path())
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("keys file mode = %o, want 0600", perm)
		}
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set("openai", "sk-test-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("work", "sk-test-2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := store.Get("work")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || value != "sk-test-2" {
		t.Errorf("Get(work) = (%q, %v), want (sk-test-2, true)", value, ok)
	}

	// First key survives the second write
	value, ok, err = store.Get("openai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || value != "sk-test-1" {
		t.Errorf("Get(openai) = (%q, %v), want (sk-test-1, true)", value, ok)
	}
}

func TestGetMissingFile(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get("openai")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() on missing file reported a key")
	}
}

func TestResolveStoredNameWinsOverEnv(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set("work", "sk-stored"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Setenv("TEST_API_KEY", "sk-env")

	got, err := store.Resolve("work", "openai", "TEST_API_KEY")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk-stored" {
		t.Errorf("Resolve() = %q, want %q", got, "sk-stored")
	}
}

func TestResolveEnvWinsOverDefaultEntry(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set("openai", "sk-stored"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Setenv("TEST_API_KEY", "sk-env")

	got, err := store.Resolve("", "openai", "TEST_API_KEY")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk-env" {
		t.Errorf("Resolve() = %q, want %q", got, "sk-env")
	}
}

func TestResolveLiteralFlagValue(t *testing.T) {
	store := newTestStore(t)
	t.Setenv("TEST_API_KEY", "")

	got, err := store.Resolve("sk-literal", "openai", "TEST_API_KEY")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk-literal" {
		t.Errorf("Resolve() = %q, want %q", got, "sk-literal")
	}
}

func TestResolveDefaultEntry(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set("openai", "sk-default"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Setenv("TEST_API_KEY", "")

	got, err := store.Resolve("", "openai", "TEST_API_KEY")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk-default" {
		t.Errorf("Resolve() = %q, want %q", got, "sk-default")
	}
}

func TestResolveNoKeyAnywhere(t *testing.T) {
	store := newTestStore(t)
	t.Setenv("TEST_API_KEY", "")

	_, err := store.Resolve("", "openai", "TEST_API_KEY")
	var noKey *NoKeyError
	if !errors.As(err, &noKey) {
		t.Fatalf("Resolve() error = %v, want NoKeyError", err)
	}
	if !strings.Contains(err.Error(), "promptrun keys set openai") {
		t.Errorf("error message should name the fix: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "TEST_API_KEY") {
		t.Errorf("error message should name the env var: %q", err.Error())
	}
}
