// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for promptrun.
//
// This package implements all promptrun commands, covering one-shot
// prompts, interactive chat, and the management commands for keys,
// templates, and the exchange log.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - ValidationError: Argument errors that exit with a usage code
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdPrompt:
//	    cli.HandlePrompt(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Core Commands:
//   - prompt (default): send a single prompt and print the response
//   - chat: interactive chat session with history
//
// Management Commands:
//   - init-db: create the exchange log database
//   - keys: store and locate API keys
//   - logs: inspect logged exchanges
//   - templates: list, show, and edit prompt templates
//
// Responses stream by default; --no-stream waits for the full response
// and renders markdown on a terminal.
package cli
