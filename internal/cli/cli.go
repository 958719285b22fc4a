// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for promptrun.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/promptrun/internal/storage"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Key resolution defaults. A --key value naming a stored entry wins;
// otherwise the environment variable, the literal value, then the
// default entry are tried in that order.
const (
	DefaultKeyName = "openai"
	KeyEnvVar      = "OPENAI_API_KEY"
)

// DefaultLogCount is how many entries "logs list" shows by default.
const DefaultLogCount = 3

// Command represents the CLI command to execute.
type Command int

const (
	CmdPrompt Command = iota
	CmdChat
	CmdInitDB
	CmdKeys
	CmdLogs
	CmdTemplates
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Prompt command
	Prompt   string            // positional words, joined
	Model    string
	GPT4     bool              // -4 shorthand for --model gpt-4
	System   string
	Template string
	Params   map[string]string // -p name value (repeatable)
	Options  map[string]string // -o name value (repeatable)
	Prefill  string
	NoStream bool
	NoLog    bool
	Continue bool
	ChatID   string // raw --chat value, validated by the handler
	Key      string
	Debug    bool

	// Subcommands (keys, logs, templates)
	Subcommand string
	Name       string

	// logs list
	Count    int
	Truncate bool
	AsTable  bool
}

const usageText = `promptrun - Access large language models from the command line

Usage:
  promptrun [prompt] [flags]      Run a prompt (default command)
  promptrun chat [flags]          Interactive chat session
  promptrun init-db               Create the exchange log database
  promptrun keys path             Print the keys.json path
  promptrun keys set <name>       Store an API key under a name
  promptrun logs path             Print the log database path
  promptrun logs list [flags]     Show logged exchanges (default)
  promptrun templates list        List available templates
  promptrun templates show <name> Print a template definition
  promptrun templates edit <name> Edit a template in $EDITOR
  promptrun templates path        Print the templates directory
  promptrun version               Show version information
  promptrun help                  Show this help

Prompt Flags:
  -m, --model NAME        Model to use (aliases: 4, gpt4, chatgpt)
  -4, --gpt4              Shorthand for --model gpt-4
  -s, --system TEXT       System prompt
  -t, --template NAME     Template to render the prompt with
  -p, --param NAME VALUE  Template parameter (repeatable)
  -o, --option NAME VALUE Model option, e.g. temperature 0.5 (repeatable)
      --prefill TEXT      Seed the response with TEXT
      --no-stream         Wait for the full response instead of streaming
  -n, --no-log            Do not log the exchange
  -c, --continue          Continue the most recent conversation
      --chat ID           Continue the conversation with the given id
      --key NAME          Stored key name, or a literal API key
      --debug             Dump request and response traffic to stderr

Chat Flags:
  -m, --model NAME        Model to use
  -4, --gpt4              Shorthand for --model gpt-4
  -s, --system TEXT       System prompt
  -t, --template NAME     Template for each turn (reloaded when edited)
  -p, --param NAME VALUE  Template parameter (repeatable)
  -o, --option NAME VALUE Model option (repeatable)
      --key NAME          Stored key name, or a literal API key
  -n, --no-log            Do not log exchanges
      --debug             Dump request and response traffic to stderr

Logs Flags (logs list):
  -n, --count N           Entries to show, 0 for all (default: 3)
  -t, --truncate          Truncate long prompts and responses
      --table             Render a table instead of JSON

Examples:
  promptrun "Ten fun names for a pet pelican"
  cat error.log | promptrun "explain this error"
  promptrun -t summarize < article.txt
  promptrun -4 -s "Reply in French" "Best pizza topping?"
  promptrun -t recipe -p ingredient tofu -p style thai "dinner tonight"
  promptrun --prefill "Here is the list:" "Three rules of robotics"
  promptrun -o temperature 0.2 "A haiku about SQLite"
  promptrun -c "Now make them funnier"
  promptrun chat -m gpt-4
  promptrun keys set openai
  promptrun logs list -n 10 --table

Environment:
  OPENAI_API_KEY          API key used when no stored key matches
  PROMPTRUN_CONFIG        Config file path (default: ~/.promptrun/config.toml)
  PROMPTRUN_MODEL         Default model override
  PROMPTRUN_API_BASE      API base URL override
  PROMPTRUN_STREAM        Stream responses (true/false)
  PROMPTRUN_MARKDOWN      Render non-streamed output as markdown (true/false)
  PROMPTRUN_KEYS_PATH     keys.json path override
  PROMPTRUN_LOG_PATH      Log database path override
  PROMPTRUN_TEMPLATES_PATH  Templates directory override
  PROMPTRUN_DEBUG         Dump request and response traffic when set

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("promptrun version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

// parse is Parse over an explicit argument slice.
func parse(argv []string) (Command, Args) {
	remaining, showVersion, showHelp := parseGlobalFlags(argv)

	if showHelp {
		return CmdHelp, newArgs()
	}
	if showVersion {
		return CmdVersion, newArgs()
	}

	// With nothing else on the line the prompt is read from stdin.
	if len(remaining) == 0 {
		return CmdPrompt, parsePromptArgs(nil)
	}

	switch strings.ToLower(remaining[0]) {
	case "chat":
		return CmdChat, parseChatArgs(remaining[1:])

	case "init-db", "initdb":
		return CmdInitDB, newArgs()

	case "keys":
		return CmdKeys, parseSubcommandArgs(remaining[1:])

	case "logs":
		return CmdLogs, parseLogsArgs(remaining[1:])

	case "templates":
		return CmdTemplates, parseSubcommandArgs(remaining[1:])

	case "version":
		return CmdVersion, newArgs()

	case "help":
		return CmdHelp, newArgs()

	default:
		// Not a command name: the whole line is a prompt.
		return CmdPrompt, parsePromptArgs(remaining)
	}
}

// parseGlobalFlags extracts --help and --version from anywhere on the
// line. Both are safe to strip: no prompt flag takes them as a value
// and positional words never start with "-".
func parseGlobalFlags(argv []string) (remaining []string, showVersion, showHelp bool) {
	for _, arg := range argv {
		switch arg {
		case "--version":
			showVersion = true
		case "--help", "-h":
			showHelp = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, showVersion, showHelp
}

func newArgs() Args {
	return Args{
		Params:  make(map[string]string),
		Options: make(map[string]string),
		Count:   DefaultLogCount,
	}
}

// parsePromptArgs parses the default prompt command's arguments.
// Positional words are joined into the prompt text; -p and -o consume
// two values each and may repeat.
func parsePromptArgs(remaining []string) Args {
	args := newArgs()
	var prompt []string

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		case "-4", "--gpt4":
			args.GPT4 = true
		case "-s", "--system":
			if i+1 < len(remaining) {
				i++
				args.System = remaining[i]
			}
		case "-t", "--template":
			if i+1 < len(remaining) {
				i++
				args.Template = remaining[i]
			}
		case "-p", "--param":
			if i+2 < len(remaining) {
				args.Params[remaining[i+1]] = remaining[i+2]
				i += 2
			}
		case "-o", "--option":
			if i+2 < len(remaining) {
				args.Options[remaining[i+1]] = remaining[i+2]
				i += 2
			}
		case "--prefill":
			if i+1 < len(remaining) {
				i++
				args.Prefill = remaining[i]
			}
		case "--no-stream":
			args.NoStream = true
		case "-n", "--no-log":
			args.NoLog = true
		case "-c", "--continue":
			args.Continue = true
		case "--chat":
			if i+1 < len(remaining) {
				i++
				args.ChatID = remaining[i]
			}
		case "--key":
			if i+1 < len(remaining) {
				i++
				args.Key = remaining[i]
			}
		case "--debug":
			args.Debug = true
		default:
			// Check for --flag=value format
			if strings.HasPrefix(arg, "--model=") {
				args.Model = strings.TrimPrefix(arg, "--model=")
			} else if strings.HasPrefix(arg, "--system=") {
				args.System = strings.TrimPrefix(arg, "--system=")
			} else if strings.HasPrefix(arg, "--template=") {
				args.Template = strings.TrimPrefix(arg, "--template=")
			} else if strings.HasPrefix(arg, "--prefill=") {
				args.Prefill = strings.TrimPrefix(arg, "--prefill=")
			} else if strings.HasPrefix(arg, "--chat=") {
				args.ChatID = strings.TrimPrefix(arg, "--chat=")
			} else if strings.HasPrefix(arg, "--key=") {
				args.Key = strings.TrimPrefix(arg, "--key=")
			} else if !strings.HasPrefix(arg, "-") {
				prompt = append(prompt, arg)
			}
		}
	}

	args.Prompt = strings.Join(prompt, " ")
	return args
}

// parseChatArgs parses chat command specific arguments. The chat
// command takes the prompt command's flags minus the ones that make
// no sense per-session (--prefill, --continue, --chat, --no-stream).
func parseChatArgs(remaining []string) Args {
	args := newArgs()

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		case "-4", "--gpt4":
			args.GPT4 = true
		case "-s", "--system":
			if i+1 < len(remaining) {
				i++
				args.System = remaining[i]
			}
		case "-t", "--template":
			if i+1 < len(remaining) {
				i++
				args.Template = remaining[i]
			}
		case "-p", "--param":
			if i+2 < len(remaining) {
				args.Params[remaining[i+1]] = remaining[i+2]
				i += 2
			}
		case "-o", "--option":
			if i+2 < len(remaining) {
				args.Options[remaining[i+1]] = remaining[i+2]
				i += 2
			}
		case "--key":
			if i+1 < len(remaining) {
				i++
				args.Key = remaining[i]
			}
		case "-n", "--no-log":
			args.NoLog = true
		case "--debug":
			args.Debug = true
		default:
			if strings.HasPrefix(arg, "--model=") {
				args.Model = strings.TrimPrefix(arg, "--model=")
			} else if strings.HasPrefix(arg, "--system=") {
				args.System = strings.TrimPrefix(arg, "--system=")
			} else if strings.HasPrefix(arg, "--template=") {
				args.Template = strings.TrimPrefix(arg, "--template=")
			} else if strings.HasPrefix(arg, "--key=") {
				args.Key = strings.TrimPrefix(arg, "--key=")
			}
		}
	}

	return args
}

// parseSubcommandArgs parses "keys" and "templates" style arguments:
// a subcommand followed by an optional name.
func parseSubcommandArgs(remaining []string) Args {
	args := newArgs()
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
	}
	if len(remaining) > 1 {
		args.Name = remaining[1]
	}
	return args
}

// parseLogsArgs parses logs command specific arguments. "list" is the
// default subcommand.
func parseLogsArgs(remaining []string) Args {
	args := newArgs()
	args.Subcommand = "list"

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "path", "list":
			args.Subcommand = arg
		case "-n", "--count":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n >= 0 {
					args.Count = n
				}
			}
		case "-t", "--truncate":
			args.Truncate = true
		case "--table":
			args.AsTable = true
		default:
			if strings.HasPrefix(arg, "--count=") {
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--count=")); err == nil && n >= 0 {
					args.Count = n
				}
			}
		}
	}

	return args
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// ERROR HANDLING: Errors must not be silently ignored

// exitError prints an error and exits with its category's code. The
// missing-database case carries a hint since init-db is the fix.
func exitError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, storage.ErrNoDatabase) {
		fmt.Fprintln(os.Stderr, "Run 'promptrun init-db' to create the log database.")
	}
	os.Exit(GetExitCode(err))
}

// HandlePrompt handles the default prompt command.
// This delegates to the full implementation in prompt.go.
func HandlePrompt(args Args) {
	if err := runPrompt(args); err != nil {
		exitError(err)
	}
}

// HandleChat handles the "chat" command.
// This delegates to the full implementation in chat.go.
func HandleChat(args Args) {
	if err := runChat(args); err != nil {
		exitError(err)
	}
}

// HandleInitDB handles the "init-db" command.
func HandleInitDB(args Args) {
	if err := runInitDB(); err != nil {
		exitError(err)
	}
}

// HandleKeys handles the "keys" command.
func HandleKeys(args Args) {
	if err := runKeys(args); err != nil {
		exitError(err)
	}
}

// HandleLogs handles the "logs" command.
func HandleLogs(args Args) {
	if err := runLogs(args); err != nil {
		exitError(err)
	}
}

// HandleTemplates handles the "templates" command.
func HandleTemplates(args Args) {
	if err := runTemplates(args); err != nil {
		exitError(err)
	}
}

// HandleVersion handles the "version" command.
func HandleVersion() {
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
