// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keys stores and resolves API keys.
//
// Keys live in a JSON file mapping names to secrets, written atomically
// and kept at mode 0600. Lookup order for a prompt invocation is a
// stored entry named by --key, then the environment, then the --key
// value itself as a literal secret, then the stored default entry.
package keys

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/promptrun/internal/util"
)

// The note is written into fresh key files as a reminder that the file
// holds secrets. It is stored under a key no real entry can use.
const (
	noteKey   = "// Note"
	noteValue = "This file stores secret API credentials. Do not share!"
)

// NoKeyError reports that no API key could be found anywhere.
type NoKeyError struct {
	DefaultName string
	EnvVar      string
}

func (e *NoKeyError) Error() string {
	return fmt.Sprintf("no key found - add one using 'promptrun keys set %s' or set the %s environment variable",
		e.DefaultName, e.EnvVar)
}

// Store reads and writes the keys file.
type Store struct {
	path string
}

// NewStore returns a store backed by the JSON file at path. The file
// does not need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the keys file path.
func (s *Store) Path() string { return s.path }

// Get returns the key stored under name.
func (s *Store) Get(name string) (string, bool, error) {
	keys, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := keys[name]
	return value, ok, nil
}

// Set stores value under name, creating the keys file on first use.
func (s *Store) Set(name, value string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := keys[noteKey]; !ok {
		keys[noteKey] = noteValue
	}
	keys[name] = value
	return s.save(keys)
}

// Resolve finds the API key to use for a request. flagValue comes from
// --key and may name a stored entry or be a literal secret. Resolution
// order:
//
//  1. a stored entry named flagValue
//  2. the environment variable envVar
//  3. flagValue itself, as a literal secret
//  4. the stored entry named defaultName
//
// A stored name wins over the environment so that --key work selects
// the "work" entry even when the environment variable is set.
func (s *Store) Resolve(flagValue, defaultName, envVar string) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	if flagValue != "" {
		if value, ok := keys[flagValue]; ok {
			return value, nil
		}
	}
	if envVar != "" {
		if value := os.Getenv(envVar); value != "" {
			return value, nil
		}
	}
	if flagValue != "" {
		return flagValue, nil
	}
	if value, ok := keys[defaultName]; ok {
		return value, nil
	}
	return "", &NoKeyError{DefaultName: defaultName, EnvVar: envVar}
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keys file: %w", err)
	}
	keys := map[string]string{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys file: %w", err)
	}
	return keys, nil
}

func (s *Store) save(keys map[string]string) error {
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode keys: %w", err)
	}
	data = append(data, '\n')
	return util.AtomicWriteFileWithDir(s.path, data, 0600, 0700)
}
