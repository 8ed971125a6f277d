// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/region"
)

// RegisterAll registers the plotshop commands with the registry.
// Panics if any registration fails (indicates a programming error).
func RegisterAll(reg *command.Registry) {
	mustRegister := func(entry command.Entry) {
		if err := reg.Register(entry); err != nil {
			panic("failed to register command " + entry.Name + ": " + err.Error())
		}
	}

	// Transactions
	mustRegister(command.Entry{
		Name:     "buy",
		Handler:  BuyHandler,
		Complete: firstArg(forSale),
		Help:     "Buy a region or a region for resale",
		Usage:    "buy <region>",
		HelpText: "Pays the price of the region and makes you its owner. " +
			"A region offered for resale is bought from its owner at the resale price.",
	})
	mustRegister(command.Entry{
		Name:     "rent",
		Handler:  RentHandler,
		Complete: firstArg(rentable),
		Help:     "Rent a region or extend your rent",
		Usage:    "rent <region>",
		HelpText: "Pays one rent period. Renting your own region again extends it " +
			"up to the maximum number of extensions and the maximum rent time.",
	})
	mustRegister(command.Entry{
		Name:     "sell",
		Handler:  SellHandler,
		Complete: firstArg(ownedOfKind(region.KindBuy)),
		Help:     "Sell your region back",
		Usage:    "sell <region>",
		HelpText: "Gives up the region and pays back the money-back share of its price.",
	})
	mustRegister(command.Entry{
		Name:     "unrent",
		Handler:  UnrentHandler,
		Complete: firstArg(ownedOfKind(region.KindRent)),
		Help:     "End your rent",
		Usage:    "unrent <region>",
		HelpText: "Ends the rent and refunds the money-back share of the unused time.",
	})
	mustRegister(command.Entry{
		Name:     "resell",
		Handler:  ResellHandler,
		Complete: nthArg(2, ownedOfKind(region.KindBuy)),
		Help:     "Offer your region for resale",
		Usage:    "resell <price> <region>",
		HelpText: "Other players can buy the region from you at the given price " +
			"while you keep it until then.",
	})
	mustRegister(command.Entry{
		Name:     "stopresell",
		Handler:  StopResellHandler,
		Complete: firstArg(reselling),
		Help:     "Stop offering your region for resale",
		Usage:    "stopresell <region>",
	})

	// Information
	mustRegister(command.Entry{
		Name:     "info",
		Handler:  InfoHandler,
		Complete: firstArg(all),
		Help:     "Show a region or list your regions",
		Usage:    "info [region]",
	})
	mustRegister(command.Entry{
		Name:     "help",
		Handler:  HelpHandler,
		Complete: completeCommands,
		Help:     "List commands or explain one",
		Usage:    "help [command]",
	})

	// Administration
	mustRegister(command.Entry{
		Name:     "stack",
		Handler:  StackHandler,
		Complete: completeStack,
		Help:     "Create many regions next to your selection",
		Usage:    stackUsage,
		HelpText: "Copies the selection <amount> times in the direction you face, " +
			"<gap> blocks apart. '#' in <name> is replaced by a sequence number.",
	})
	mustRegister(command.Entry{
		Name:     "delregion",
		Handler:  DeleteRegionHandler,
		Complete: firstArg(all),
		Help:     "Delete a region without payouts",
		Usage:    "delregion <region>",
	})

	// Selection
	mustRegister(command.Entry{
		Name:    "select",
		Handler: SelectHandler,
		Help:    "Select a cuboid",
		Usage:   "select <x1> <y1> <z1> <x2> <y2> <z2> [world]",
	})
	mustRegister(command.Entry{
		Name:    "face",
		Handler: FaceHandler,
		Help:    "Set your view direction",
		Usage:   "face <yaw> <pitch>",
	})
	mustRegister(command.Entry{
		Name:    "tp",
		Handler: TeleportHandler,
		Help:    "Move to a position",
		Usage:   "tp <x> <y> <z> [world]",
	})
}

// regionFilter selects the regions suggested to the executing player.
type regionFilter func(exec *command.Execution, r *region.Region) bool

func firstArg(keep regionFilter) command.Completer {
	return nthArg(1, keep)
}

// nthArg completes region names at argument position n, counted from 1.
func nthArg(n int, keep regionFilter) command.Completer {
	return func(_ context.Context, exec *command.Execution, args []string) []string {
		if len(args) != n {
			return nil
		}
		return regionsWhere(exec, func(r *region.Region) bool { return keep(exec, r) })
	}
}

func all(*command.Execution, *region.Region) bool { return true }

func forSale(exec *command.Execution, r *region.Region) bool {
	if r.Kind != region.KindBuy {
		return false
	}
	if !r.IsOwned() {
		return true
	}
	return r.Buy.ResellMode && !r.IsOwnedBy(exec.Actor.ID)
}

func rentable(exec *command.Execution, r *region.Region) bool {
	return r.Kind == region.KindRent && (!r.IsOwned() || r.IsOwnedBy(exec.Actor.ID))
}

func ownedOfKind(kind region.Kind) regionFilter {
	return func(exec *command.Execution, r *region.Region) bool {
		return r.Kind == kind && r.IsOwnedBy(exec.Actor.ID)
	}
}

func reselling(exec *command.Execution, r *region.Region) bool {
	return r.Buy != nil && r.Buy.ResellMode && r.IsOwnedBy(exec.Actor.ID)
}
