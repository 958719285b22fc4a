// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys_cmd.go - API key management commands for promptrun.
//
// CLI: Comprehensive help and examples for all commands
// SECURITY: keys are entered without echo and stored owner-only
//
// Commands:
//   promptrun keys path          Print the keys.json path
//   promptrun keys set <name>    Store an API key under a name

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/promptrun/internal/config"
	"github.com/jeranaias/promptrun/internal/keys"
)

// runKeys dispatches the keys subcommands.
func runKeys(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store := keys.NewStore(cfg.KeysPath)

	switch args.Subcommand {
	case "path":
		fmt.Println(store.Path())
		return nil

	case "set":
		if args.Name == "" {
			return &ValidationError{Message: "usage: promptrun keys set <name>"}
		}
		value, err := readSecret("Enter key: ")
		if err != nil {
			return err
		}
		if value == "" {
			return &ValidationError{Message: "no key entered"}
		}
		if err := store.Set(args.Name, value); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Key '" + args.Name + "' saved to " + store.Path()))
		return nil

	default:
		return &ValidationError{Message: "usage: promptrun keys <path|set>"}
	}
}

// readSecret prompts on stderr and reads a value without echoing it.
// Piped stdin is read as a single line so scripts can feed keys in.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", WrapError(err, "failed to read key")
		}
		return strings.TrimSpace(string(data)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", WrapError(err, "failed to read key")
	}
	return strings.TrimSpace(line), nil
}
