// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Default prompt command handler for promptrun.
//
// CLI: Comprehensive help and examples for all commands
// USABILITY: Markdown rendering and streaming output
//
// Handles the default command which sends one prompt to the model and
// prints the response, streaming it by default.
//
// Command: promptrun [prompt] [flags]
//
// Examples:
//   promptrun "Ten fun names for a pet pelican"
//   cat error.log | promptrun "explain this error"
//   promptrun -t summarize < article.txt
//   promptrun --prefill "Here is the list:" "Three rules of robotics"
//   promptrun -c "Now make them funnier"

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/promptrun/internal/cloud"
	"github.com/jeranaias/promptrun/internal/config"
	"github.com/jeranaias/promptrun/internal/keys"
	"github.com/jeranaias/promptrun/internal/model"
	"github.com/jeranaias/promptrun/internal/storage"
	"github.com/jeranaias/promptrun/internal/stream"
	"github.com/jeranaias/promptrun/internal/template"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
// USABILITY: Renders markdown responses with syntax highlighting and formatting.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse displays a complete response, rendered as markdown
// when stdout is a TTY so piped output stays raw.
func displayResponse(response string, markdown bool) {
	if markdown && IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
		return
	}
	fmt.Println(response)
}

// =============================================================================
// PROMPT ASSEMBLY
// =============================================================================

// gatherPrompt combines the positional prompt text with piped stdin.
func gatherPrompt(arg string) (string, error) {
	piped := ""
	if IsStdinPiped() {
		reader := bufio.NewReader(os.Stdin)
		data, err := io.ReadAll(reader)
		if err != nil {
			return "", WrapError(err, "failed to read stdin")
		}
		piped = strings.TrimSpace(string(data))
	}

	text := combinePrompt(arg, piped)
	if text == "" {
		return "", &ValidationError{Message: `no prompt given. Usage: promptrun "your prompt"`}
	}
	return text, nil
}

// combinePrompt merges the argument and piped input: either alone
// stands, both together stack with the argument first.
func combinePrompt(arg, piped string) string {
	switch {
	case arg == "":
		return piped
	case piped == "":
		return arg
	default:
		return arg + "\n" + piped
	}
}

// =============================================================================
// PROMPT COMMAND
// =============================================================================

// runPrompt executes one exchange: resolve the template and model,
// replay any continued conversation, call the API, print the response,
// and log the exchange.
func runPrompt(args Args) error {
	if args.Template != "" && args.System != "" {
		return &ValidationError{Message: "Cannot use --template and --system together"}
	}
	if args.Continue && args.ChatID != "" {
		return &ValidationError{Message: "Cannot use --continue and --chat together"}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	prompt, err := gatherPrompt(args.Prompt)
	if err != nil {
		return err
	}

	// Template rendering. A system-only template passes the prompt
	// through and supplies the system message.
	var tpl template.Template
	system := args.System
	if args.Template != "" {
		loader := template.NewLoader(cfg.TemplatesPath)
		tpl, err = loader.Load(args.Template)
		if err != nil {
			return err
		}
		prompt, system, err = template.Evaluate(tpl, prompt, args.Params)
		if err != nil {
			return err
		}
	}
	options := resolveOptions(tpl, args.Options)

	// Conversation history
	var chatID int64
	var history []storage.Entry
	if args.Continue || args.ChatID != "" {
		requested := storage.LatestChat
		if args.ChatID != "" {
			requested, err = strconv.ParseInt(args.ChatID, 10, 64)
			if err != nil {
				return &ValidationError{Flag: "--chat", Message: "conversation id must be an integer"}
			}
		}
		store, err := storage.OpenExisting(cfg.LogPath)
		if err != nil {
			return err
		}
		chatID, history, err = store.History(requested)
		store.Close()
		if err != nil {
			return err
		}
	}

	// Model precedence: flag, template, continued conversation, config.
	modelName := args.Model
	if modelName == "" && args.GPT4 {
		modelName = "gpt-4"
	}
	if modelName == "" {
		modelName = tpl.Model
	}
	if modelName == "" {
		modelName = storage.HistoryModel(history)
	}
	if modelName == "" {
		modelName = cfg.DefaultModel
	}
	modelName = cloud.ResolveModel(modelName)

	messages := storage.BuildMessages(history, system, prompt)
	if args.Prefill != "" {
		// The model continues from the prefill; the reconciler folds
		// the echo back out of the reply.
		messages = append(messages, model.NewAssistantMessage(args.Prefill))
	}

	client, err := newClient(cfg, args, modelName)
	if err != nil {
		return err
	}

	start := time.Now()
	response, debugJSON, err := exchange(client, messages, options, args.Prefill, cfg, args)
	if err != nil {
		return err
	}

	if args.NoLog {
		return nil
	}
	return logExchange(cfg.LogPath, storage.Entry{
		Prompt:     prompt,
		System:     system,
		Response:   response,
		Model:      modelName,
		ChatID:     chatID,
		Debug:      debugJSON,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// resolveOptions merges command-line options over the template's and
// flattens the result for the request body.
func resolveOptions(tpl template.Template, flags map[string]string) map[string]string {
	overrides := make(map[string]any, len(flags))
	for name, value := range flags {
		overrides[name] = value
	}
	resolved := template.EvaluateOptions(tpl, overrides)
	if len(resolved) == 0 {
		return nil
	}
	options := make(map[string]string, len(resolved))
	for _, opt := range resolved {
		options[opt.Name] = opt.Value
	}
	return options
}

// newClient builds the API client for one command invocation.
func newClient(cfg *config.Config, args Args, modelName string) (*cloud.Client, error) {
	keyStore := keys.NewStore(cfg.KeysPath)
	apiKey, err := keyStore.Resolve(args.Key, DefaultKeyName, KeyEnvVar)
	if err != nil {
		return nil, err
	}

	client := cloud.NewClient(apiKey).WithBaseURL(cfg.APIBase)
	client.SetModel(modelName)
	if args.Debug || os.Getenv("PROMPTRUN_DEBUG") != "" {
		client = client.WithTransport(&cloud.DebugTransport{Out: os.Stderr})
	}
	return client, nil
}

// exchange performs the API call and prints the response, returning
// the full response text and a debug summary for the log.
func exchange(client *cloud.Client, messages []model.Message, options map[string]string, prefill string, cfg *config.Config, args Args) (string, string, error) {
	ctx := context.Background()

	if !cfg.Stream || args.NoStream {
		resp, err := client.Chat(ctx, messages, options)
		if err != nil {
			return "", "", err
		}
		// The same head rules apply to a complete response: strip a
		// leading prefill echo, or splice the prefill in front.
		text, err := stream.Accumulate(prefill, stream.NewTextSource(resp.GetContent()), stream.Options{})
		if err != nil {
			return "", "", err
		}
		displayResponse(text, cfg.Markdown)
		return text, resp.DebugJSON(), nil
	}

	sseStream, err := client.ChatStream(ctx, messages, options)
	if err != nil {
		return "", "", err
	}
	defer sseStream.Close()

	// STREAMING: segments print as they arrive. The recorder keeps the
	// raw payloads so the debug summary can be assembled afterwards.
	var raw stream.ChunkLog
	rec := stream.New(prefill, sseStream, stream.Options{
		Record: &raw,
		Decode: cloud.DecodeDelta,
	})

	var sb strings.Builder
	for {
		segment, err := rec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Println()
			return sb.String(), "", err
		}
		sb.WriteString(segment)
		fmt.Print(segment)
	}
	fmt.Println()

	return sb.String(), streamDebugJSON(&raw), nil
}

// streamDebugJSON summarizes recorded stream payloads for the log's
// debug column. Later chunks win, mirroring how the fields trickle in.
func streamDebugJSON(raw *stream.ChunkLog) string {
	var info cloud.DebugInfo
	for _, c := range raw.Chunks() {
		if !c.IsRaw() {
			continue
		}
		var chunk cloud.StreamChunk
		if json.Unmarshal(c.Raw, &chunk) != nil {
			continue
		}
		if chunk.Model != "" {
			info.Model = chunk.Model
		}
		if reason := chunk.GetFinishReason(); reason != "" {
			info.FinishReason = reason
		}
	}
	data, err := json.Marshal(info)
	if err != nil {
		return ""
	}
	return string(data)
}

// logExchange appends one exchange to the log database. A missing
// database is not an error: logging starts once init-db has run.
func logExchange(path string, entry storage.Entry) error {
	store, err := storage.OpenExisting(path)
	if err != nil {
		if errors.Is(err, storage.ErrNoDatabase) {
			return nil
		}
		return err
	}
	defer store.Close()

	_, err = store.LogExchange(entry)
	return err
}
