// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - TOML configuration with defaults, env overrides, validation

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/promptrun/internal/util"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config represents the complete promptrun configuration.
//
// Path fields left empty in the file (or struct) resolve to their
// defaults under the data directory when loaded.
type Config struct {
	// DefaultModel is used when neither a flag nor a template names one.
	DefaultModel string `toml:"default_model"`
	// APIBase is the chat completions endpoint base URL.
	APIBase string `toml:"api_base"`
	// Stream selects streamed responses by default (--no-stream flips it
	// per invocation).
	Stream bool `toml:"stream"`
	// Markdown renders non-streamed responses as markdown when stdout is
	// a terminal.
	Markdown bool `toml:"markdown"`

	// KeysPath is the API key store location.
	KeysPath string `toml:"keys_path"`
	// LogPath is the exchange log database location.
	LogPath string `toml:"log_path"`
	// TemplatesPath is the prompt template directory.
	TemplatesPath string `toml:"templates_path"`
}

// Default returns the built-in configuration. Path fields stay empty
// here; Load resolves them against the data directory.
func Default() *Config {
	return &Config{
		DefaultModel: "gpt-3.5-turbo",
		APIBase:      "https://api.openai.com/v1",
		Stream:       true,
		Markdown:     true,
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the promptrun data directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".promptrun"), nil
}

// Path returns the config file location, honoring $PROMPTRUN_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("PROMPTRUN_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// fillPaths resolves empty path fields to their defaults under the data
// directory.
func (c *Config) fillPaths() error {
	if c.KeysPath != "" && c.LogPath != "" && c.TemplatesPath != "" {
		return nil
	}
	dir, err := Dir()
	if err != nil {
		return err
	}
	if c.KeysPath == "" {
		c.KeysPath = filepath.Join(dir, "keys.json")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(dir, "log.db")
	}
	if c.TemplatesPath == "" {
		c.TemplatesPath = filepath.Join(dir, "templates")
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file when present and falls back to defaults.
// Environment overrides are applied last, then paths are resolved and
// the result validated.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path. A
// missing file is not an error; defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
//
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# promptrun configuration file")
	fmt.Fprintln(&buf, "# Generated by promptrun - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies PROMPTRUN_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("PROMPTRUN_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if base := os.Getenv("PROMPTRUN_API_BASE"); base != "" {
		c.APIBase = base
	}
	if v := os.Getenv("PROMPTRUN_STREAM"); v != "" {
		c.Stream = v == "1" || strings.ToLower(v) == "true"
	}
	if v := os.Getenv("PROMPTRUN_MARKDOWN"); v != "" {
		c.Markdown = v == "1" || strings.ToLower(v) == "true"
	}
	if p := os.Getenv("PROMPTRUN_KEYS_PATH"); p != "" {
		c.KeysPath = p
	}
	if p := os.Getenv("PROMPTRUN_LOG_PATH"); p != "" {
		c.LogPath = p
	}
	if p := os.Getenv("PROMPTRUN_TEMPLATES_PATH"); p != "" {
		c.TemplatesPath = p
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.DefaultModel == "" {
		errs = append(errs, ValidationError{
			Field:   "default_model",
			Message: "cannot be empty",
		})
	}

	if c.APIBase == "" {
		errs = append(errs, ValidationError{
			Field:   "api_base",
			Message: "cannot be empty",
		})
	} else if u, err := url.Parse(c.APIBase); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "api_base",
			Message: fmt.Sprintf("invalid URL '%s', must be http or https", c.APIBase),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
