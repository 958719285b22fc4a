// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDefault verifies the built-in defaults.
func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, "gpt-3.5-turbo", cfg.DefaultModel)
	require.Equal(t, "https://api.openai.com/v1", cfg.APIBase)
	require.True(t, cfg.Stream, "streaming should be on by default")
	require.True(t, cfg.Markdown, "markdown rendering should be on by default")
	require.NoError(t, cfg.Validate())
}

// TestLoadFromPath_MissingFile verifies that a missing config file falls
// back to defaults with paths resolved.
func TestLoadFromPath_MissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	require.Equal(t, "gpt-3.5-turbo", cfg.DefaultModel)
	require.NotEmpty(t, cfg.KeysPath)
	require.NotEmpty(t, cfg.LogPath)
	require.NotEmpty(t, cfg.TemplatesPath)
}

// TestLoadFromPath_PartialFile verifies that fields absent from the file
// keep their defaults.
func TestLoadFromPath_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "default_model = \"gpt-4\"\nstream = false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	require.Equal(t, "gpt-4", cfg.DefaultModel)
	require.False(t, cfg.Stream)
	require.Equal(t, "https://api.openai.com/v1", cfg.APIBase, "unset fields keep defaults")
	require.True(t, cfg.Markdown, "unset fields keep defaults")
}

// TestSaveTOML_RoundTrip verifies that a saved config loads back
// unchanged.
func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.DefaultModel = "gpt-4"
	cfg.Stream = false
	cfg.LogPath = filepath.Join(dir, "custom.db")
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "gpt-4", loaded.DefaultModel)
	require.False(t, loaded.Stream)
	require.Equal(t, filepath.Join(dir, "custom.db"), loaded.LogPath)
}

// TestApplyEnvOverrides verifies PROMPTRUN_* variables win over file
// values.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PROMPTRUN_MODEL", "gpt-4")
	t.Setenv("PROMPTRUN_API_BASE", "https://proxy.example.com/v1")
	t.Setenv("PROMPTRUN_STREAM", "0")
	t.Setenv("PROMPTRUN_KEYS_PATH", "/tmp/keys.json")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	require.Equal(t, "gpt-4", cfg.DefaultModel)
	require.Equal(t, "https://proxy.example.com/v1", cfg.APIBase)
	require.False(t, cfg.Stream)
	require.Equal(t, "/tmp/keys.json", cfg.KeysPath)
}

// TestValidate covers the rejected configurations.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"empty model", func(c *Config) { c.DefaultModel = "" }, true},
		{"empty api base", func(c *Config) { c.APIBase = "" }, true},
		{"api base without scheme", func(c *Config) { c.APIBase = "api.openai.com/v1" }, true},
		{"api base bad scheme", func(c *Config) { c.APIBase = "ftp://api.openai.com" }, true},
		{"http api base", func(c *Config) { c.APIBase = "http://localhost:8080/v1" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestValidateErrors_CollectsAll verifies every failing field is
// reported, not just the first.
func TestValidateErrors_CollectsAll(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	require.Contains(t, err.Error(), "default_model")
	require.Contains(t, err.Error(), "api_base")
}
