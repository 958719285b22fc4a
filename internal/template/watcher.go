// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// watcher.go - Template change notification for long-running commands.

package template

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports template file changes so interactive commands can
// reload an edited template between turns.
type Watcher struct {
	fw *fsnotify.Watcher

	mu    sync.Mutex
	dirty map[string]bool
}

// Watch starts watching the loader's directory for template changes.
// Callers must Close the watcher when done.
func (l *Loader) Watch() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(l.dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		fw:    fw,
		dirty: make(map[string]bool),
	}
	go w.run()
	return w, nil
}

// run marks templates dirty as their files change.
func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".yaml") {
				continue
			}
			w.mu.Lock()
			w.dirty[strings.TrimSuffix(base, ".yaml")] = true
			w.mu.Unlock()
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next Changed call simply
			// reports no change.
		}
	}
}

// Changed reports whether the named template changed since the last
// call, clearing the mark.
func (w *Watcher) Changed(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirty[name] {
		delete(w.dirty, name)
		return true
	}
	return false
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
