// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Registry holds the registered commands. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Entry)}
}

// Register adds entry. Names are case-insensitive; a later registration
// replaces an earlier one with a warning.
func (r *Registry) Register(entry Entry) error {
	if err := ValidateCommandName(entry.Name); err != nil {
		return err
	}
	if entry.Handler == nil {
		return ErrNilHandler(entry.Name)
	}
	entry.Name = strings.ToLower(strings.TrimSpace(entry.Name))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[entry.Name]; ok {
		slog.Warn("command conflict: overwriting existing command", "command", entry.Name)
	}
	r.commands[entry.Name] = entry
	return nil
}

// Get looks a command up by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.commands[strings.ToLower(name)]
	return entry, ok
}

// All returns every command ordered by name.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Name, b.Name) })
	return entries
}
