// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"strconv"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/stack"
)

const stackUsage = "stack <amount> <gap> <name> <rent|buy> [group]"

// StackHandler starts a bulk stack of copies of the selection along the
// direction the player faces.
func StackHandler(ctx context.Context, exec *command.Execution) error {
	args := command.Fields(exec.Args)
	if len(args) < 4 || len(args) > 5 {
		return command.ErrInvalidArgs("stack", stackUsage)
	}
	amount, err := strconv.Atoi(args[0])
	if err != nil || amount <= 0 {
		return command.ErrInvalidArg("stack", args[0]+" is not a valid amount.")
	}
	gap, err := strconv.Atoi(args[1])
	if err != nil {
		return command.ErrInvalidArg("stack", args[1]+" is not a valid gap.")
	}
	kind, err := region.ParseKind(args[3])
	if err != nil {
		return err
	}

	sel := exec.Services.Selections.Get(exec.Actor.ID)
	if sel.Cuboid == nil {
		return stack.ErrNoSelection()
	}
	facing, err := stack.FacingFromView(sel.Yaw, sel.Pitch)
	if err != nil {
		return err
	}
	req := stack.Request{
		Initiator: exec.Actor.ID,
		World:     sel.World,
		Selection: sel.Cuboid,
		Facing:    facing,
		Amount:    amount,
		Gap:       gap,
		Template:  args[2],
		Kind:      kind,
	}
	if len(args) == 5 {
		req.Group = args[4]
	}

	job, err := exec.Services.Stack.Start(ctx, req)
	if err != nil {
		return err
	}
	writeOutputf(ctx, exec, "stack", "Stacking %d %s regions %s (job %s).\n",
		amount, kind, facing, job.ID)
	return nil
}

// completeStack suggests the kind at the fourth argument and group names at
// the fifth.
func completeStack(_ context.Context, exec *command.Execution, args []string) []string {
	switch len(args) {
	case 4:
		return []string{string(region.KindRent), string(region.KindBuy)}
	case 5:
		return exec.Services.Engine.Registry().GroupNames()
	}
	return nil
}
