// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for promptrun.
//
// CLI: Comprehensive help and examples for all commands
// USABILITY: Input history and line editing for the REPL
//
// Handles the "promptrun chat" command which provides an interactive
// REPL for conversing with the model. Exchanges are logged like the
// prompt command's, linked into one conversation.
//
// Command: chat
//
// Examples:
//   promptrun chat                    Chat with the default model
//   promptrun chat -m gpt-4           Use a specific model
//   promptrun chat -t coach           Template supplies the system prompt
//
// Interactive commands (during chat):
//   exit, quit          Leave the chat
//   !multi [tag]        Enter multiple lines, closed by '!end' or '!end tag'
//   Ctrl+C              Cancel the current generation
//   Ctrl+D              Leave the chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/promptrun/internal/cloud"
	"github.com/jeranaias/promptrun/internal/config"
	"github.com/jeranaias/promptrun/internal/model"
	"github.com/jeranaias/promptrun/internal/storage"
	"github.com/jeranaias/promptrun/internal/stream"
	"github.com/jeranaias/promptrun/internal/template"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// History lives next to the config file
	dir, err := config.Dir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		dir = os.TempDir()
	}
	historyFile := filepath.Join(dir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	// Load existing history
	cli.LoadHistory()

	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	// Add non-empty input to history
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists input history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0755); err != nil {
		return
	}

	// Owner read/write only
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession holds the state for an interactive chat session.
type chatSession struct {
	cfg    *config.Config
	client *cloud.Client

	// Template machinery; loader and watcher are nil without -t.
	loader      *template.Loader
	watcher     *template.Watcher
	tpl         template.Template
	params      map[string]string
	flagOptions map[string]string

	modelName string
	system    string
	options   map[string]string

	// Conversation so far, user/assistant pairs only. The system
	// message is prepended fresh on every request so template edits
	// take effect mid-session.
	messages []model.Message

	// Logging. store is nil when logging is off or no database exists.
	// chatID links entries: the first exchange's row id names the
	// conversation. lastSystem tracks what the log already carries so
	// only changes are recorded.
	store      *storage.Store
	chatID     int64
	lastSystem string

	// Cancel function for the in-flight generation
	cancel context.CancelFunc
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// runChat starts the interactive REPL.
func runChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	if args.Template != "" && args.System != "" {
		return &ValidationError{Message: "Cannot use --template and --system together"}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	session := &chatSession{
		cfg:         cfg,
		params:      args.Params,
		flagOptions: args.Options,
		system:      args.System,
	}

	modelName := args.Model
	if modelName == "" && args.GPT4 {
		modelName = "gpt-4"
	}

	if args.Template != "" {
		session.loader = template.NewLoader(cfg.TemplatesPath)
		session.tpl, err = session.loader.Load(args.Template)
		if err != nil {
			return err
		}
		if modelName == "" {
			modelName = session.tpl.Model
		}
		// Reload the template between turns when its file changes.
		session.watcher, err = session.loader.Watch()
		if err != nil {
			return WrapError(err, "failed to watch templates")
		}
		defer session.watcher.Close()
	}

	if modelName == "" {
		modelName = cfg.DefaultModel
	}
	session.modelName = cloud.ResolveModel(modelName)
	session.options = resolveOptions(session.tpl, session.flagOptions)

	session.client, err = newClient(cfg, args, session.modelName)
	if err != nil {
		return err
	}

	if !args.NoLog {
		store, err := storage.OpenExisting(cfg.LogPath)
		if err == nil {
			session.store = store
			defer store.Close()
		} else if !errors.Is(err, storage.ErrNoDatabase) {
			return err
		}
	}

	fmt.Println(TitleStyle.Render("Chatting with " + session.modelName))
	fmt.Println(DimStyle.Render("Type 'exit' or 'quit' to exit"))
	fmt.Println(DimStyle.Render("Type '!multi' to enter multiple lines, then '!end' to finish"))

	input := NewChatCLI()
	defer input.Close()

	// Ctrl+C cancels the in-flight generation, not the REPL.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if session.cancel != nil {
				session.cancel()
			}
		}
	}()

	for {
		line, err := input.ReadInput(TitleStyle.Render("> "))
		if err == liner.ErrPromptAborted {
			fmt.Println(DimStyle.Render("(type 'exit' or press Ctrl+D to leave)"))
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		if line == "!multi" || strings.HasPrefix(line, "!multi ") {
			tag := strings.TrimSpace(strings.TrimPrefix(line, "!multi"))
			line, err = readMulti(input, tag)
			if err == liner.ErrPromptAborted {
				fmt.Println(DimStyle.Render("(canceled)"))
				continue
			}
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
		}

		if err := session.exchange(line); err != nil {
			// The REPL survives failed exchanges.
			fmt.Println(ErrorStyle.Render("Error: " + err.Error()))
		}
	}
}

// readMulti gathers lines until the closing marker: '!end', or
// '!end tag' when the opening '!multi tag' named one.
func readMulti(input *ChatCLI, tag string) (string, error) {
	end := "!end"
	if tag != "" {
		end = "!end " + tag
	}

	var lines []string
	for {
		line, err := input.ReadInput("")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == end {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// exchange sends one turn and streams the reply.
func (s *chatSession) exchange(userInput string) error {
	if err := s.reloadTemplate(); err != nil {
		return err
	}

	prompt := userInput
	if s.loader != nil {
		p, system, err := template.Evaluate(s.tpl, userInput, s.params)
		if err != nil {
			return err
		}
		prompt, s.system = p, system
	}

	msgs := make([]model.Message, 0, len(s.messages)+2)
	if s.system != "" {
		msgs = append(msgs, model.NewSystemMessage(s.system))
	}
	msgs = append(msgs, s.messages...)
	msgs = append(msgs, model.NewUserMessage(prompt))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer func() {
		s.cancel = nil
		cancel()
	}()

	start := time.Now()
	sseStream, err := s.client.ChatStream(ctx, msgs, s.options)
	if err != nil {
		return err
	}
	defer sseStream.Close()

	rec := stream.New("", sseStream, stream.Options{Decode: cloud.DecodeDelta})
	var sb strings.Builder
	canceled := false
	for {
		segment, err := rec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println()
			if ctx.Err() != nil {
				// Ctrl+C: keep the partial reply and carry on.
				canceled = true
				break
			}
			return err
		}
		sb.WriteString(segment)
		fmt.Print(segment)
	}
	if canceled {
		fmt.Println(DimStyle.Render("(canceled)"))
	} else {
		fmt.Println()
	}
	reply := sb.String()

	s.messages = append(s.messages,
		model.NewUserMessage(prompt),
		model.NewAssistantMessage(reply),
	)

	return s.log(prompt, reply, time.Since(start))
}

// reloadTemplate picks up template edits between turns.
func (s *chatSession) reloadTemplate() error {
	if s.watcher == nil || !s.watcher.Changed(s.tpl.Name) {
		return nil
	}
	tpl, err := s.loader.Load(s.tpl.Name)
	if err != nil {
		return WrapError(err, "failed to reload template")
	}
	s.tpl = tpl
	s.options = resolveOptions(s.tpl, s.flagOptions)
	fmt.Println(InfoStyle.Render("(template '" + tpl.Name + "' reloaded)"))
	return nil
}

// log records one exchange. The first entry's row id becomes the
// conversation id for the rest of the session; the system prompt is
// recorded only when it changed so replay emits it at the right turns.
func (s *chatSession) log(prompt, reply string, duration time.Duration) error {
	if s.store == nil {
		return nil
	}

	system := ""
	if s.system != s.lastSystem {
		system = s.system
	}

	id, err := s.store.LogExchange(storage.Entry{
		Prompt:     prompt,
		System:     system,
		Response:   reply,
		Model:      s.modelName,
		ChatID:     s.chatID,
		DurationMS: duration.Milliseconds(),
	})
	if err != nil {
		return err
	}
	if s.chatID == 0 {
		s.chatID = id
	}
	s.lastSystem = s.system
	return nil
}
