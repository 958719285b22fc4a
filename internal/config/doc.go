// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for promptrun.
//
// Settings live in a single TOML file with sensible defaults, environment
// variable overrides, and validation.
//
// # Key Types
//
//   - Config: the complete settings structure
//   - ValidationError / ValidateErrors: typed validation failures
//
// # Configuration Precedence
//
// Configuration is resolved from (in order of precedence):
//   - Environment variables (PROMPTRUN_*)
//   - ~/.promptrun/config.toml (or $PROMPTRUN_CONFIG)
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// Access settings:
//
//	model := cfg.DefaultModel
//	dbPath := cfg.LogPath
package config
