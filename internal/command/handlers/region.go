// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"strconv"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/region"
)

// regionArg returns the single region name argument of cmd.
func regionArg(exec *command.Execution, cmd, usage string) (string, error) {
	args := command.Fields(exec.Args)
	if len(args) != 1 {
		return "", command.ErrInvalidArgs(cmd, usage)
	}
	return args[0], nil
}

// displayName returns the stored spelling of name when the region exists.
func displayName(exec *command.Execution, name string) string {
	if r, ok := exec.Services.Engine.Registry().Get(name); ok {
		return r.Name
	}
	return name
}

// BuyHandler buys a region, or a region offered for resale.
func BuyHandler(ctx context.Context, exec *command.Execution) error {
	name, err := regionArg(exec, "buy", "buy <region>")
	if err != nil {
		return err
	}
	if err := exec.Services.Engine.Buy(ctx, actorOf(exec), name); err != nil {
		return err
	}
	writeOutputf(ctx, exec, "buy", "You now own %s.\n", displayName(exec, name))
	return nil
}

// RentHandler rents a region or extends the player's own rent.
func RentHandler(ctx context.Context, exec *command.Execution) error {
	name, err := regionArg(exec, "rent", "rent <region>")
	if err != nil {
		return err
	}
	if err := exec.Services.Engine.Rent(ctx, actorOf(exec), name); err != nil {
		return err
	}
	r, ok := exec.Services.Engine.Registry().Get(name)
	if ok && r.Rent != nil {
		writeOutputf(ctx, exec, "rent", "You rent %s until %s.\n",
			r.Name, r.Rent.RentedUntil.UTC().Format("2006-01-02 15:04 MST"))
		return nil
	}
	writeOutputf(ctx, exec, "rent", "You rent %s.\n", name)
	return nil
}

// SellHandler sells a bought region back to the server with money back.
func SellHandler(ctx context.Context, exec *command.Execution) error {
	name, err := regionArg(exec, "sell", "sell <region>")
	if err != nil {
		return err
	}
	if err := exec.Services.Engine.Sell(ctx, actorOf(exec), name, true); err != nil {
		return err
	}
	writeOutputf(ctx, exec, "sell", "%s has been sold.\n", displayName(exec, name))
	return nil
}

// UnrentHandler ends a rent with a refund for the unused time.
func UnrentHandler(ctx context.Context, exec *command.Execution) error {
	name, err := regionArg(exec, "unrent", "unrent <region>")
	if err != nil {
		return err
	}
	if err := exec.Services.Engine.Unrent(ctx, actorOf(exec), name, true); err != nil {
		return err
	}
	writeOutputf(ctx, exec, "unrent", "%s has been unrented.\n", displayName(exec, name))
	return nil
}

// ResellHandler offers a bought region for resale to other players.
func ResellHandler(ctx context.Context, exec *command.Execution) error {
	const usage = "resell <price> <region>"
	args := command.Fields(exec.Args)
	if len(args) != 2 {
		return command.ErrInvalidArgs("resell", usage)
	}
	price, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return command.ErrInvalidArg("resell", args[0]+" is not a valid price.")
	}
	if err := exec.Services.Engine.EnableResell(ctx, actorOf(exec), args[1], price); err != nil {
		return err
	}
	writeOutputf(ctx, exec, "resell", "%s is now for resale at %s.\n",
		displayName(exec, args[1]), exec.Services.Engine.Money(price))
	return nil
}

// StopResellHandler takes a region off the resale market.
func StopResellHandler(ctx context.Context, exec *command.Execution) error {
	name, err := regionArg(exec, "stopresell", "stopresell <region>")
	if err != nil {
		return err
	}
	if err := exec.Services.Engine.DisableResell(ctx, actorOf(exec), name); err != nil {
		return err
	}
	writeOutputf(ctx, exec, "stopresell", "%s is no longer for resale.\n", displayName(exec, name))
	return nil
}

// DeleteRegionHandler removes a region without payouts.
func DeleteRegionHandler(ctx context.Context, exec *command.Execution) error {
	name, err := regionArg(exec, "delregion", "delregion <region>")
	if err != nil {
		return err
	}
	display := displayName(exec, name)
	if err := exec.Services.Engine.Delete(ctx, actorOf(exec), name); err != nil {
		return err
	}
	writeOutputf(ctx, exec, "delregion", "%s has been deleted.\n", display)
	return nil
}

// regionsWhere returns the region names matching keep.
func regionsWhere(exec *command.Execution, keep func(*region.Region) bool) []string {
	var names []string
	for _, r := range exec.Services.Engine.Registry().All() {
		if keep(r) {
			names = append(names, r.Name)
		}
	}
	return names
}
