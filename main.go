// promptrun - Access large language models from the command line.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/jeranaias/promptrun/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdPrompt:
		cli.HandlePrompt(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdInitDB:
		cli.HandleInitDB(args)
	case cli.CmdKeys:
		cli.HandleKeys(args)
	case cli.CmdLogs:
		cli.HandleLogs(args)
	case cli.CmdTemplates:
		cli.HandleTemplates(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandlePrompt(args)
	}
}
