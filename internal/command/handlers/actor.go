// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/transaction"
)

// actorOf returns the executing actor with world and position filled in from
// the player's selection when the caller left them empty.
func actorOf(exec *command.Execution) transaction.Actor {
	actor := exec.Actor
	if actor.IsSystem() || exec.Services.Selections == nil {
		return actor
	}
	sel := exec.Services.Selections.Get(actor.ID)
	if actor.World == "" {
		actor.World = sel.World
	}
	if actor.Position == nil && sel.Position != nil {
		p := *sel.Position
		actor.Position = &p
	}
	return actor
}
