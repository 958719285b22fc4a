// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// migrations.go - Ordered, named schema migrations.
//
// Each migration runs at most once; applied names are recorded in the
// migrations table. The list only ever grows at the tail, so databases
// written by any earlier release upgrade in place on Open.

package storage

import "fmt"

type migration struct {
	name  string
	stmts []string
}

var allMigrations = []migration{
	{
		name: "001_initial",
		stmts: []string{`
CREATE TABLE IF NOT EXISTS log (
    id INTEGER PRIMARY KEY,
    timestamp TEXT,
    prompt TEXT,
    system TEXT,
    response TEXT,
    model TEXT
)`},
	},
	{
		name: "002_chat_id",
		stmts: []string{
			`ALTER TABLE log ADD COLUMN chat_id INTEGER REFERENCES log(id)`,
		},
	},
	{
		name: "003_debug_duration",
		stmts: []string{
			`ALTER TABLE log ADD COLUMN debug TEXT`,
			`ALTER TABLE log ADD COLUMN duration_ms INTEGER`,
		},
	},
}

// migrate applies every migration that has not run yet, in order.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS migrations (
    name TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.Query(`SELECT name FROM migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration name: %w", err)
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, m := range allMigrations {
		if applied[m.name] {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %s: %w", m.name, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO migrations (name, applied_at) VALUES (?, ?)`,
			m.name, timestamp()); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}
