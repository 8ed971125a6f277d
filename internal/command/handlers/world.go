// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"math"
	"strconv"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/region"
)

// The game server normally reports selections, positions and view
// directions. These commands set them by hand for the console.

func parseInts(cmd string, fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, command.ErrInvalidArg(cmd, f+" is not a whole number.")
		}
		out[i] = n
	}
	return out, nil
}

func worldArg(exec *command.Execution, args []string, n int) string {
	if len(args) > n {
		return args[n]
	}
	if w := exec.Services.Selections.Get(exec.Actor.ID).World; w != "" {
		return w
	}
	return exec.Actor.World
}

// SelectHandler marks the cuboid between two corners.
func SelectHandler(ctx context.Context, exec *command.Execution) error {
	args := command.Fields(exec.Args)
	if len(args) != 6 && len(args) != 7 {
		return command.ErrInvalidArgs("select", "select <x1> <y1> <z1> <x2> <y2> <z2> [world]")
	}
	n, err := parseInts("select", args[:6])
	if err != nil {
		return err
	}
	world := worldArg(exec, args, 6)
	if world == "" {
		return command.ErrInvalidArg("select", "Name the world to select in.")
	}
	a := region.Point{X: n[0], Y: n[1], Z: n[2]}
	b := region.Point{X: n[3], Y: n[4], Z: n[5]}
	exec.Services.Selections.Select(exec.Actor.ID, world, a, b)
	writeOutputf(ctx, exec, "select", "Selected %s in %s.\n", region.NewCuboid(a, b), world)
	return nil
}

// FaceHandler sets the view direction in degrees.
func FaceHandler(ctx context.Context, exec *command.Execution) error {
	args := command.Fields(exec.Args)
	if len(args) != 2 {
		return command.ErrInvalidArgs("face", "face <yaw> <pitch>")
	}
	yaw, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(yaw) || math.IsInf(yaw, 0) {
		return command.ErrInvalidArg("face", args[0]+" is not a valid yaw.")
	}
	pitch, err := strconv.ParseFloat(args[1], 64)
	if err != nil || math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return command.ErrInvalidArg("face", args[1]+" is not a valid pitch.")
	}
	exec.Services.Selections.Look(exec.Actor.ID, yaw, pitch)
	writeOutputf(ctx, exec, "face", "Facing yaw %.0f, pitch %.0f.\n", yaw, pitch)
	return nil
}

// TeleportHandler moves the player.
func TeleportHandler(ctx context.Context, exec *command.Execution) error {
	args := command.Fields(exec.Args)
	if len(args) != 3 && len(args) != 4 {
		return command.ErrInvalidArgs("tp", "tp <x> <y> <z> [world]")
	}
	n, err := parseInts("tp", args[:3])
	if err != nil {
		return err
	}
	world := worldArg(exec, args, 3)
	if world == "" {
		return command.ErrInvalidArg("tp", "Name the world to move to.")
	}
	p := region.Point{X: n[0], Y: n[1], Z: n[2]}
	exec.Services.Selections.MoveTo(exec.Actor.ID, world, p)
	writeOutputf(ctx, exec, "tp", "Moved to %s in %s.\n", p, world)
	return nil
}
