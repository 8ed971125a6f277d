// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package spatial is the index of named cuboids per world.
package spatial

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/plotshop/internal/region"
)

// Error codes.
const (
	CodeExists   = "SPATIAL_EXISTS"
	CodeNotFound = "SPATIAL_NOT_FOUND"
)

// ErrExists is returned when a cuboid with the same name already exists in a world.
var ErrExists = errors.New("spatial region already exists")

// ErrNotFound is returned when removing an unknown cuboid.
var ErrNotFound = errors.New("spatial region not found")

// Index stores named cuboids.
type Index interface {
	Create(ctx context.Context, world, name string, cuboid region.Cuboid) error
	Lookup(world, name string) (region.Cuboid, bool)
	Remove(world, name string) error
	Contains(world, name string, p region.Point) bool
}

// Memory is an in-memory Index.
type Memory struct {
	mu     sync.RWMutex
	worlds map[string]map[string]region.Cuboid
}

var _ Index = (*Memory)(nil)

// NewMemory returns an empty index.
func NewMemory() *Memory {
	return &Memory{worlds: make(map[string]map[string]region.Cuboid)}
}

// Create adds a named cuboid to world.
func (m *Memory) Create(_ context.Context, world, name string, cuboid region.Cuboid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.worlds[world]
	if !ok {
		w = make(map[string]region.Cuboid)
		m.worlds[world] = w
	}
	k := strings.ToLower(name)
	if _, exists := w[k]; exists {
		return oops.Code(CodeExists).With("world", world).With("name", name).Wrap(ErrExists)
	}
	w[k] = cuboid
	return nil
}

// Lookup returns the named cuboid.
func (m *Memory) Lookup(world, name string) (region.Cuboid, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.worlds[world][strings.ToLower(name)]
	return c, ok
}

// Remove deletes the named cuboid.
func (m *Memory) Remove(world, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := strings.ToLower(name)
	if _, ok := m.worlds[world][k]; !ok {
		return oops.Code(CodeNotFound).With("world", world).With("name", name).Wrap(ErrNotFound)
	}
	delete(m.worlds[world], k)
	return nil
}

// Contains reports whether p lies in the named cuboid.
func (m *Memory) Contains(world, name string, p region.Point) bool {
	c, ok := m.Lookup(world, name)
	return ok && c.Contains(p)
}

// Len returns the number of cuboids in world.
func (m *Memory) Len(world string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.worlds[world])
}
