// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// storage.go - SQLite-backed exchange log.

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoDatabase is returned when an operation needs an existing log
	// database and none has been created yet.
	ErrNoDatabase = errors.New("log database does not exist")

	// ErrNoHistory is returned when a conversation id matches no rows.
	ErrNoHistory = errors.New("no matching conversation")
)

// =============================================================================
// ENTRIES
// =============================================================================

// LatestChat selects the most recent conversation instead of a specific
// one.
const LatestChat int64 = -1

// Timestamps are stored as UTC text, microsecond precision.
const timestampLayout = "2006-01-02 15:04:05.000000"

// Entry is one logged exchange. A zero ChatID means the entry started a
// conversation (or was never continued); otherwise it points at the
// first entry of its conversation.
type Entry struct {
	ID         int64  `json:"id"`
	Timestamp  string `json:"timestamp"`
	Prompt     string `json:"prompt"`
	System     string `json:"system,omitempty"`
	Response   string `json:"response"`
	Model      string `json:"model"`
	ChatID     int64  `json:"chat_id,omitempty"`
	Debug      string `json:"debug,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// =============================================================================
// STORE
// =============================================================================

// Store is a handle on the log database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the log database at path, creating the file and its parent
// directory as needed, and applies any pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return open(path)
}

// OpenExisting opens the log database only if the file already exists.
// It returns ErrNoDatabase when it does not, which callers turn into a
// hint to run init-db first.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, path)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	return open(path)
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000", // other promptrun processes may hold the write lock
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// =============================================================================
// LOGGING
// =============================================================================

// LogExchange inserts one exchange and returns its row id. A zero
// Timestamp is stamped with the current UTC time.
func (s *Store) LogExchange(e Entry) (int64, error) {
	ts := e.Timestamp
	if ts == "" {
		ts = timestamp()
	}
	res, err := s.db.Exec(
		`INSERT INTO log (timestamp, prompt, system, response, model, chat_id, debug, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, e.Prompt, nullString(e.System), e.Response, e.Model,
		nullInt(e.ChatID), nullString(e.Debug), e.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log exchange: %w", err)
	}
	return res.LastInsertId()
}

// =============================================================================
// READING
// =============================================================================

// History returns every entry of one conversation in creation order,
// oldest first. chatID is the id of the conversation's first entry;
// LatestChat resolves to the most recently written conversation. The
// resolved id is returned so follow-up entries can reference it.
//
// LatestChat on an empty database is not an error: it returns (0, nil,
// nil) and the caller starts a fresh conversation. An explicit chatID
// that matches nothing returns ErrNoHistory.
func (s *Store) History(chatID int64) (int64, []Entry, error) {
	if chatID == LatestChat {
		var id int64
		var cid sql.NullInt64
		err := s.db.QueryRow(`SELECT id, chat_id FROM log ORDER BY id DESC LIMIT 1`).Scan(&id, &cid)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, nil
		}
		if err != nil {
			return 0, nil, fmt.Errorf("failed to find latest conversation: %w", err)
		}
		if cid.Valid && cid.Int64 != 0 {
			chatID = cid.Int64
		} else {
			chatID = id
		}
	}

	rows, err := s.db.Query(
		`SELECT id, timestamp, prompt, system, response, model, chat_id, debug, duration_ms
		 FROM log WHERE id = ? OR chat_id = ? ORDER BY id`,
		chatID, chatID,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return 0, nil, err
	}
	if len(entries) == 0 {
		return 0, nil, fmt.Errorf("%w: %d", ErrNoHistory, chatID)
	}
	return chatID, entries, nil
}

// List returns the most recent n entries, newest first. n <= 0 returns
// everything.
func (s *Store) List(n int) ([]Entry, error) {
	limit := n
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.Query(
		`SELECT id, timestamp, prompt, system, response, model, chat_id, debug, duration_ms
		 FROM log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var system, debug sql.NullString
		var chatID, duration sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Prompt, &system, &e.Response,
			&e.Model, &chatID, &debug, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.System = system.String
		e.ChatID = chatID.Int64
		e.Debug = debug.String
		e.DurationMS = duration.Int64
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func timestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// Optional columns stay NULL rather than "" or 0 so old and new rows
// look alike.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
