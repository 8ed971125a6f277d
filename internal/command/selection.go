// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"

	"github.com/google/uuid"

	"github.com/holomush/plotshop/internal/region"
)

// Selection is a player's current world edit state: the cuboid they marked,
// where they stand and where they look.
type Selection struct {
	World    string
	Cuboid   *region.Cuboid
	Position *region.Point
	Yaw      float64
	Pitch    float64
}

// Selections tracks one Selection per player. It is safe for concurrent use.
type Selections struct {
	mu   sync.Mutex
	byID map[uuid.UUID]Selection
}

// NewSelections creates an empty Selections.
func NewSelections() *Selections {
	return &Selections{byID: make(map[uuid.UUID]Selection)}
}

// Get returns the selection of player.
func (s *Selections) Get(player uuid.UUID) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[player]
}

func (s *Selections) update(player uuid.UUID, fn func(*Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.byID[player]
	fn(&sel)
	s.byID[player] = sel
}

// Select marks the cuboid spanned by a and b in world.
func (s *Selections) Select(player uuid.UUID, world string, a, b region.Point) {
	c := region.NewCuboid(a, b)
	s.update(player, func(sel *Selection) {
		sel.World = world
		sel.Cuboid = &c
	})
}

// Look sets the view direction in degrees.
func (s *Selections) Look(player uuid.UUID, yaw, pitch float64) {
	s.update(player, func(sel *Selection) {
		sel.Yaw = yaw
		sel.Pitch = pitch
	})
}

// MoveTo sets where the player stands.
func (s *Selections) MoveTo(player uuid.UUID, world string, p region.Point) {
	s.update(player, func(sel *Selection) {
		sel.World = world
		sel.Position = &p
	})
}

// Clear forgets the player.
func (s *Selections) Clear(player uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, player)
}
