// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transaction

import (
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/region"
)

// Error codes for rejected transactions. Every rejection leaves the region in
// its prior state.
const (
	CodeNoPermission      = "NO_PERMISSION"
	CodeAlreadyOwned      = "ALREADY_OWNED"
	CodeAlreadyYours      = "ALREADY_YOURS"
	CodeRestrictedWorld   = "RESTRICTED_WORLD"
	CodeRestrictedRegion  = "RESTRICTED_REGION"
	CodeLimitExceeded     = "LIMIT_EXCEEDED"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodePaymentFailed     = "PAYMENT_FAILED"
	CodeRegionNotFound    = region.CodeNotFound
	CodeNotSold           = "NOT_SOLD"
	CodeNotRented         = "NOT_RENTED"
	CodeNotOwner          = "NOT_OWNER"
	CodeWrongKind         = "WRONG_KIND"
	CodeExtendLimit       = "EXTEND_LIMIT"
	CodeMaxRentTime       = "MAX_RENT_TIME"
	CodeNameTaken         = region.CodeNameTaken
	CodeInvalidPrice      = "INVALID_PRICE"
	CodeSpatialFailed     = "SPATIAL_FAILED"
	CodeInvalidDuration   = "INVALID_DURATION"
)

// Sentinel errors for configuration problems.
var (
	ErrNilRegistry = errors.New("registry is required")
	ErrNilSpatial  = errors.New("spatial index is required")
	ErrNilLedger   = errors.New("ledger is required")
	ErrNilAccess   = errors.New("access control is required")
)

func reject(code, message string) oops.OopsErrorBuilder {
	return oops.In("transaction").Code(code).With("message", message)
}

// ErrNoPermission creates an error for a failed permission check.
func ErrNoPermission(action, resource string) error {
	return reject(CodeNoPermission, "You don't have permission to do that.").
		With("action", action).
		With("resource", resource).
		Errorf("permission denied: %s on %s", action, resource)
}

// ErrAlreadyOwned creates an error for a region held by another player.
func ErrAlreadyOwned(r *region.Region) error {
	return reject(CodeAlreadyOwned, fmt.Sprintf("%s already belongs to %s.", r.Name, r.OwnerName())).
		With("region", r.Name).
		With("owner", r.OwnerName()).
		Errorf("region %s already owned", r.Name)
}

// ErrAlreadyYours creates an error for buying one's own region.
func ErrAlreadyYours(r *region.Region) error {
	return reject(CodeAlreadyYours, fmt.Sprintf("You already own %s.", r.Name)).
		With("region", r.Name).
		Errorf("region %s already owned by actor", r.Name)
}

// ErrRestrictedWorld creates an error for acting from the wrong world.
func ErrRestrictedWorld(r *region.Region, world string) error {
	return reject(CodeRestrictedWorld, fmt.Sprintf("You need to be in world %s to do that.", r.World)).
		With("region", r.Name).
		With("required_world", r.World).
		With("world", world).
		Errorf("actor in world %q, region in %q", world, r.World)
}

// ErrRestrictedRegion creates an error for acting from outside the region.
func ErrRestrictedRegion(r *region.Region) error {
	return reject(CodeRestrictedRegion, fmt.Sprintf("You need to stand inside %s to do that.", r.Name)).
		With("region", r.Name).
		Errorf("actor outside region %s", r.Name)
}

// ErrLimitExceeded creates an error from a failing limit evaluation.
func ErrLimitExceeded(res limits.Result) error {
	return reject(CodeLimitExceeded, "You have reached your limit: "+res.String()+".").
		With("factor", string(res.Factor)).
		With("max", res.Maximum).
		With("current", res.Current).
		With("group", res.Group).
		Errorf("limit exceeded: %s", res)
}

// ErrInsufficientFunds creates an error for a balance below the price.
func ErrInsufficientFunds(balance, price float64, format region.MoneyFormatter) error {
	return reject(CodeInsufficientFunds,
		fmt.Sprintf("You need %s but only have %s.", format(price), format(balance))).
		With("balance", balance).
		With("price", price).
		Errorf("insufficient funds: balance %.2f, price %.2f", balance, price)
}

// ErrPaymentFailed reports a failed withdrawal.
func ErrPaymentFailed(cause error) error {
	return reject(CodePaymentFailed, "The payment could not be completed.").
		With("cause", cause.Error()).
		Errorf("payment failed: %v", cause)
}

// ErrRegionNotFound creates an error for an unknown region.
func ErrRegionNotFound(name string) error {
	return region.ErrRegionNotFound(name)
}

// ErrNotSold creates an error for selling a region nobody bought.
func ErrNotSold(r *region.Region) error {
	return reject(CodeNotSold, fmt.Sprintf("%s has not been sold.", r.Name)).
		With("region", r.Name).
		Errorf("region %s is not sold", r.Name)
}

// ErrNotRented creates an error for unrenting a region nobody rents.
func ErrNotRented(r *region.Region) error {
	return reject(CodeNotRented, fmt.Sprintf("%s is not rented.", r.Name)).
		With("region", r.Name).
		Errorf("region %s is not rented", r.Name)
}

// ErrNotOwner creates an error for managing someone else's region.
func ErrNotOwner(r *region.Region) error {
	return reject(CodeNotOwner, fmt.Sprintf("You don't own %s.", r.Name)).
		With("region", r.Name).
		Errorf("actor does not own region %s", r.Name)
}

// ErrWrongKind creates an error for a rent operation on a buy region or vice versa.
func ErrWrongKind(r *region.Region, want region.Kind) error {
	return reject(CodeWrongKind, fmt.Sprintf("%s is a %s region.", r.Name, r.Kind)).
		With("region", r.Name).
		With("kind", r.Kind.String()).
		With("want", want.String()).
		Errorf("region %s is %s, want %s", r.Name, r.Kind, want)
}

// ErrExtendLimit creates an error for too many rent extensions.
func ErrExtendLimit(r *region.Region, maxExtends int) error {
	return reject(CodeExtendLimit, fmt.Sprintf("You cannot extend %s more than %d times.", r.Name, maxExtends)).
		With("region", r.Name).
		With("max", maxExtends).
		Errorf("extend limit %d reached", maxExtends)
}

// ErrMaxRentTime creates an error for extending past the maximum rent time.
func ErrMaxRentTime(r *region.Region, maxRent string) error {
	return reject(CodeMaxRentTime, fmt.Sprintf("You cannot rent %s for longer than %s in advance.", r.Name, maxRent)).
		With("region", r.Name).
		With("max", maxRent).
		Errorf("max rent time %s exceeded", maxRent)
}

// ErrInvalidPrice creates an error for a negative or non-finite price.
func ErrInvalidPrice(price float64) error {
	return reject(CodeInvalidPrice, "The price must be zero or more.").
		With("price", price).
		Errorf("invalid price %v", price)
}

// ErrSpatialFailed reports a spatial index failure during create.
func ErrSpatialFailed(name string, cause error) error {
	return reject(CodeSpatialFailed, "The region could not be created in the world.").
		With("region", name).
		With("cause", cause.Error()).
		Errorf("spatial create failed for %s: %v", name, cause)
}

// ErrInvalidDuration reports a rent region without a usable rent.duration.
func ErrInvalidDuration(r *region.Region) error {
	return reject(CodeInvalidDuration, fmt.Sprintf("%s has no rent duration configured.", r.Name)).
		With("region", r.Name).
		Errorf("region %s has no positive %s", r.Name, region.KeyRentDuration)
}

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "Something went wrong. Try again."
}

// Code returns the oops code of err, or "" for other errors.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if c := oopsErr.Code(); c != nil {
			return fmt.Sprint(c)
		}
	}
	return ""
}
