// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// logs_cmd.go - Log inspection commands for promptrun.
//
// CLI: Comprehensive help and examples for all commands
// USABILITY: Clear, actionable error messages
//
// Commands:
//   promptrun logs path              Print the log database path
//   promptrun logs list [-n N]       Show the N most recent exchanges
//
// Output is JSON (newest first) so it pipes cleanly into jq. --table
// renders aligned columns instead, usually combined with -t.

package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/promptrun/internal/config"
	"github.com/jeranaias/promptrun/internal/storage"
	"github.com/jeranaias/promptrun/internal/util"
)

// logTruncateLen is the rune budget -t applies to prompts and responses.
const logTruncateLen = 100

// runLogs dispatches the logs subcommands.
func runLogs(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "path":
		fmt.Println(cfg.LogPath)
		return nil

	case "list":
		return listLogs(cfg, args)

	default:
		return &ValidationError{Message: "usage: promptrun logs <list|path>"}
	}
}

func listLogs(cfg *config.Config, args Args) error {
	store, err := storage.OpenExisting(cfg.LogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(args.Count)
	if err != nil {
		return err
	}

	if args.Truncate {
		for i := range entries {
			entries[i].Prompt = util.TruncateRunes(entries[i].Prompt, logTruncateLen)
			entries[i].Response = util.TruncateRunes(entries[i].Response, logTruncateLen)
		}
	}

	if args.AsTable {
		fmt.Println(logsTable(entries))
		return nil
	}

	// An empty log is an empty list, not null
	if entries == nil {
		entries = []storage.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return WrapError(err, "failed to encode entries")
	}
	fmt.Println(string(data))
	return nil
}

// logsTable renders entries as aligned columns. Newlines inside prompts
// and responses are flattened so each entry stays on one row.
func logsTable(entries []storage.Entry) string {
	headers := []string{"ID", "TIMESTAMP", "MODEL", "PROMPT", "RESPONSE"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp,
			e.Model,
			flattenLine(e.Prompt),
			flattenLine(e.Response),
		})
	}
	return util.Table(headers, rows)
}

func flattenLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
