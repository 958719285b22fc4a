// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// initdb_cmd.go - Log database creation for promptrun.
//
// Creates ~/.promptrun/log.db and its schema. Safe to run repeatedly;
// an existing database is left as it is.

package cli

import (
	"fmt"

	"github.com/jeranaias/promptrun/internal/config"
	"github.com/jeranaias/promptrun/internal/storage"
)

func runInitDB() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.LogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println(SuccessStyle.Render("Log database ready at " + store.Path()))
	return nil
}
