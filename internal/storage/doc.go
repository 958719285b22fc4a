// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists prompt/response exchanges in a SQLite log.
//
// Every completed exchange becomes one row in the log table. Rows that
// belong to the same conversation share a chat_id pointing at the first
// row of that conversation, which lets a later invocation replay the
// whole thread in creation order.
//
// # Key Types
//
//   - Store: handle on the log database
//   - Entry: one logged exchange
//
// # Usage
//
//	store, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	id, err := store.LogExchange(storage.Entry{
//	    Prompt:   "Three names for a pet pelican",
//	    Response: "Pelly, Beaky, Scoop",
//	    Model:    "gpt-3.5-turbo",
//	})
//
// The schema is managed by named migrations that are applied on Open,
// so older databases are upgraded in place.
package storage
