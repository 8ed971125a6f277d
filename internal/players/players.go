// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package players answers questions about players: names, activity and exemptions.
package players

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Directory resolves player information.
type Directory interface {
	Name(id uuid.UUID) string
	// LastActive returns the zero time for players never seen.
	LastActive(id uuid.UUID) time.Time
	// IsExempt reports whether the player is excluded from inactivity sweeps.
	IsExempt(id uuid.UUID) bool
	IsOnline(id uuid.UUID) bool
}

type entry struct {
	name       string
	lastActive time.Time
	online     bool
	exempt     bool
}

// Memory is an in-memory Directory fed by join/quit events.
type Memory struct {
	mu      sync.RWMutex
	now     func() time.Time
	players map[uuid.UUID]*entry
}

var _ Directory = (*Memory)(nil)

// NewMemory creates an empty directory. now defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now, players: make(map[uuid.UUID]*entry)}
}

func (m *Memory) entryLocked(id uuid.UUID) *entry {
	e, ok := m.players[id]
	if !ok {
		e = &entry{}
		m.players[id] = e
	}
	return e
}

// Join marks the player online.
func (m *Memory) Join(id uuid.UUID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(id)
	e.name = name
	e.online = true
	e.lastActive = m.now()
}

// Quit marks the player offline and records the time.
func (m *Memory) Quit(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(id)
	e.online = false
	e.lastActive = m.now()
}

// Seen records a player's name and last activity without changing online state.
func (m *Memory) Seen(id uuid.UUID, name string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(id)
	if name != "" {
		e.name = name
	}
	e.lastActive = at
}

// SetExempt toggles the inactivity exemption.
func (m *Memory) SetExempt(id uuid.UUID, exempt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entryLocked(id).exempt = exempt
}

// Name returns the last known name.
func (m *Memory) Name(id uuid.UUID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.players[id]; ok {
		return e.name
	}
	return ""
}

// LastActive returns now for online players.
func (m *Memory) LastActive(id uuid.UUID) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.players[id]
	if !ok {
		return time.Time{}
	}
	if e.online {
		return m.now()
	}
	return e.lastActive
}

// IsExempt reports the inactivity exemption.
func (m *Memory) IsExempt(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.players[id]
	return ok && e.exempt
}

// IsOnline reports whether the player is connected.
func (m *Memory) IsOnline(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.players[id]
	return ok && e.online
}
