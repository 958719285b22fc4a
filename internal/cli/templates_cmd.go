// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// templates_cmd.go - Template management commands for promptrun.
//
// CLI: Comprehensive help and examples for all commands
//
// Commands:
//   promptrun templates list          List available templates
//   promptrun templates show <name>   Print a template definition
//   promptrun templates edit <name>   Edit a template in $EDITOR
//   promptrun templates path          Print the templates directory

package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/promptrun/internal/config"
	"github.com/jeranaias/promptrun/internal/template"
	"github.com/jeranaias/promptrun/internal/util"
)

// DefaultTemplate seeds a new template file opened for editing.
const DefaultTemplate = "prompt: "

// runTemplates dispatches the templates subcommands.
func runTemplates(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loader := template.NewLoader(cfg.TemplatesPath)

	switch args.Subcommand {
	case "list":
		return listTemplates(loader)

	case "show":
		if args.Name == "" {
			return &ValidationError{Message: "usage: promptrun templates show <name>"}
		}
		return showTemplate(loader, args.Name)

	case "edit":
		if args.Name == "" {
			return &ValidationError{Message: "usage: promptrun templates edit <name>"}
		}
		return editTemplate(loader, args.Name)

	case "path":
		if err := loader.EnsureDir(); err != nil {
			return err
		}
		fmt.Println(loader.Path())
		return nil

	default:
		return &ValidationError{Message: "usage: promptrun templates <list|show|edit|path>"}
	}
}

// listTemplates prints one aligned "name : prompt" line per template,
// truncated to the terminal width.
func listTemplates(loader *template.Loader) error {
	templates, err := loader.List()
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Println(DimStyle.Render("No templates yet. Create one with 'promptrun templates edit <name>'."))
		return nil
	}

	maxName := 0
	for _, t := range templates {
		if len(t.Name) > maxName {
			maxName = len(t.Name)
		}
	}

	width := GetTerminalWidth()
	for _, t := range templates {
		line := fmt.Sprintf("%-*s : %s", maxName, t.Name, t.Prompt)
		fmt.Println(util.TruncateWidth(line, width))
	}
	return nil
}

// showTemplate prints the template as YAML, set fields only.
func showTemplate(loader *template.Loader, name string) error {
	tpl, err := loader.Load(name)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(tpl)
	if err != nil {
		return WrapError(err, "failed to render template")
	}
	fmt.Print(string(data))
	return nil
}

// editTemplate opens the template file in the user's editor, seeding
// a skeleton when the template does not exist yet, and validates the
// result.
func editTemplate(loader *template.Loader, name string) error {
	if err := loader.EnsureDir(); err != nil {
		return err
	}

	path := loader.FilePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(DefaultTemplate), 0644); err != nil {
			return WrapError(err, "failed to create template")
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	// $EDITOR may carry flags, e.g. "code --wait"
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return WrapError(err, "editor failed")
	}

	// Reject the edit early rather than at the next prompt.
	if _, err := loader.Load(name); err != nil {
		return err
	}
	return nil
}
