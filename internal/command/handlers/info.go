// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/transaction"
)

// InfoHandler describes one region, or lists the player's regions.
func InfoHandler(ctx context.Context, exec *command.Execution) error {
	args := command.Fields(exec.Args)
	switch len(args) {
	case 0:
		return listOwn(ctx, exec)
	case 1:
		r, ok := exec.Services.Engine.Registry().Get(args[0])
		if !ok {
			return transaction.ErrRegionNotFound(args[0])
		}
		writeOutput(ctx, exec, "info", describe(exec.Services.Engine, r))
		return nil
	}
	return command.ErrInvalidArgs("info", "info [region]")
}

func listOwn(ctx context.Context, exec *command.Execution) error {
	owned := exec.Services.Engine.Registry().OwnedBy(exec.Actor.ID)
	if len(owned) == 0 {
		writeOutput(ctx, exec, "info", "You don't own any regions.")
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your regions (%d):", len(owned))
	for _, r := range owned {
		fmt.Fprintf(&sb, "\n  %s (%s, %s)", r.Name, r.Kind, r.World)
	}
	writeOutput(ctx, exec, "info", sb.String())
	return nil
}

func describe(engine *transaction.Engine, r *region.Region) string {
	tags := engine.Tags(r)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s, %s]\n", tags["region"], tags["type"], tags["state"])
	fmt.Fprintf(&sb, "  World: %s  Size: %sx%sx%s  At: %s\n",
		tags["world"], tags["width"], tags["height"], tags["depth"], r.Cuboid)
	fmt.Fprintf(&sb, "  Price: %s", tags["price"])
	if r.Kind == region.KindRent {
		fmt.Fprintf(&sb, " per %s", tags["duration"])
	}
	if tags["groups"] != "" {
		fmt.Fprintf(&sb, "\n  Groups: %s", tags["groups"])
	}
	if !r.IsOwned() {
		return sb.String()
	}
	fmt.Fprintf(&sb, "\n  Owner: %s", tags["player"])
	switch r.Kind {
	case region.KindRent:
		fmt.Fprintf(&sb, "\n  Rented until: %s  Extended: %s/%s",
			tags["until"], tags["timesextended"], tags["maxextends"])
	case region.KindBuy:
		if tags["resellprice"] != "" {
			fmt.Fprintf(&sb, "\n  For resale at: %s", tags["resellprice"])
		}
	}
	return sb.String()
}
