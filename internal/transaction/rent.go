// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/region"
)

// Rent rents a region to actor for one rent.duration. When actor already rents
// it the rent is extended instead, which skips the limit check but honours
// rent.maxExtends and rent.maxRentTime.
func (e *Engine) Rent(ctx context.Context, actor Actor, name string) error {
	ctx, done := e.track(ctx, access.ActionRent, name, actor)
	return done(e.rent(ctx, actor, name))
}

func (e *Engine) rent(ctx context.Context, actor Actor, name string) error {
	r, err := e.lookup(name, region.KindRent)
	if err != nil {
		return err
	}
	resource := access.RegionResource(r.Name)
	if actor.IsSystem() {
		return ErrNoPermission(access.ActionRent, resource)
	}
	if err := e.can(ctx, actor, access.ActionRent, resource); err != nil {
		return err
	}

	extending := r.IsOwnedBy(actor.ID)
	if r.IsOwned() && !extending {
		return ErrAlreadyOwned(r)
	}

	layers := e.registry.Layers(r)
	if err := e.checkRestrictions(actor, r, layers); err != nil {
		return err
	}
	duration := layers.Duration(region.KeyRentDuration)
	if duration <= 0 {
		return ErrInvalidDuration(r)
	}

	now := e.clock()
	if extending {
		if maxExtends := intSetting(layers, region.KeyRentMaxExtends, limits.Unlimited); maxExtends >= 0 && r.Rent.TimesExtended >= maxExtends {
			return ErrExtendLimit(r, maxExtends)
		}
		remaining := max(r.Rent.RentedUntil.Sub(now), 0)
		if maxRent := layers.Duration(region.KeyRentMaxRentTime); maxRent > 0 && remaining+duration > maxRent {
			return ErrMaxRentTime(r, region.FormatDuration(maxRent))
		}
	} else if err := e.checkLimits(ctx, actor, r, limits.ActionRent); err != nil {
		return err
	}

	if err := e.charge(ctx, actor, r.World, layers.Float(region.KeyRentPrice)); err != nil {
		return err
	}

	if extending {
		e.hooks.Run(ctx, r, region.EventExtended, true)
		base := r.Rent.RentedUntil
		if base.Before(now) {
			base = now
		}
		r.Rent.RentedUntil = base.Add(duration)
		r.Rent.TimesExtended++
		e.registry.MarkDirty(r.Name)
		e.notify(ctx, actor.ID, notify.KeyRentExtended, e.Tags(r))
		e.hooks.Run(ctx, r, region.EventExtended, false)
		return nil
	}

	e.hooks.Run(ctx, r, region.EventRented, true)
	r.SetOwner(actor.ID, e.actorName(actor))
	r.Rent.RentedUntil = now.Add(duration)
	r.Rent.TimesExtended = 0
	e.registry.MarkDirty(r.Name)
	e.notify(ctx, actor.ID, notify.KeyRentSuccess, e.Tags(r))
	e.hooks.Run(ctx, r, region.EventRented, false)
	return nil
}

// Unrent ends a rent. The refund is the rent.moneyBack share of the price,
// prorated by the time left over rent.duration. Once eligible it always completes.
func (e *Engine) Unrent(ctx context.Context, actor Actor, name string, giveMoneyBack bool) error {
	ctx, done := e.track(ctx, access.ActionUnrent, name, actor)
	return done(e.unrentChecked(ctx, actor, name, giveMoneyBack))
}

func (e *Engine) unrentChecked(ctx context.Context, actor Actor, name string, giveMoneyBack bool) error {
	r, err := e.lookup(name, region.KindRent)
	if err != nil {
		return err
	}
	if !r.IsOwned() {
		return ErrNotRented(r)
	}
	if err := e.canManage(ctx, actor, r, access.ActionUnrent); err != nil {
		return err
	}
	e.unrent(ctx, r, giveMoneyBack, notify.KeyUnrentSuccess)
	return nil
}

func (e *Engine) unrent(ctx context.Context, r *region.Region, giveMoneyBack bool, key string) {
	renter := r.Owner()
	tags := e.Tags(r)

	e.hooks.Run(ctx, r, region.EventUnrented, true)
	if giveMoneyBack {
		refund := e.unrentRefund(r)
		e.payout(ctx, access.ActionUnrent, renter, r, refund)
		tags["moneyback"] = e.money(refund)
	}
	r.ClearFriends()
	r.SetOwner(uuid.Nil, "")
	e.registry.MarkDirty(r.Name)
	e.notify(ctx, renter, key, tags)
	e.hooks.Run(ctx, r, region.EventUnrented, false)
}

// unrentRefund prorates the money back over the unused rent time.
func (e *Engine) unrentRefund(r *region.Region) float64 {
	layers := e.registry.Layers(r)
	duration := layers.Duration(region.KeyRentDuration)
	if duration <= 0 {
		return 0
	}
	remaining := r.Rent.RentedUntil.Sub(e.clock())
	if remaining <= 0 {
		return 0
	}
	share := refundShare(layers.Float(region.KeyRentPrice), layers.Float(region.KeyRentMoneyBack))
	return share * float64(remaining) / float64(duration)
}

// Reason says why the server releases a region.
type Reason int

// Release reasons.
const (
	// ReasonInactive releases the region of an inactive owner with money back.
	ReasonInactive Reason = iota
	// ReasonExpired ends a rent whose time ran out, without money back.
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonInactive:
		return "inactive"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Release sells or unrents a region on behalf of the server. It returns
// NOT_SOLD or NOT_RENTED when the region has no owner.
func (e *Engine) Release(ctx context.Context, name string, reason Reason) error {
	ctx, done := e.track(ctx, "release", name, System)
	return done(e.release(ctx, name, reason))
}

func (e *Engine) release(ctx context.Context, name string, reason Reason) error {
	r, ok := e.registry.Get(name)
	if !ok {
		return ErrRegionNotFound(name)
	}
	moneyBack := reason == ReasonInactive
	switch r.Kind {
	case region.KindBuy:
		if !r.IsOwned() {
			return ErrNotSold(r)
		}
		e.sell(ctx, r, moneyBack, notify.KeyInactiveSold)
	case region.KindRent:
		if !r.IsOwned() {
			return ErrNotRented(r)
		}
		key := notify.KeyInactiveUnrented
		if reason == ReasonExpired {
			key = notify.KeyRentExpired
		}
		e.unrent(ctx, r, moneyBack, key)
	}
	return nil
}

// WarnExpiry notifies the renter that the rent ends within rent.warningTime.
// It warns at most once per rent period and reports whether it sent a warning.
func (e *Engine) WarnExpiry(ctx context.Context, name string) bool {
	r, ok := e.registry.Get(name)
	if !ok || r.Rent == nil || !r.IsOwned() {
		return false
	}
	warning := e.registry.Layers(r).Duration(region.KeyRentWarningTime)
	if warning <= 0 || r.Rent.LastWarning.Equal(r.Rent.RentedUntil) {
		return false
	}
	remaining := r.Rent.RentedUntil.Sub(e.clock())
	if remaining <= 0 || remaining > warning {
		return false
	}
	r.Rent.LastWarning = r.Rent.RentedUntil
	e.registry.MarkDirty(r.Name)
	tags := e.Tags(r)
	tags["remaining"] = region.FormatDuration(remaining.Truncate(time.Second))
	e.notify(ctx, r.Owner(), notify.KeyRentExpireWarn, tags)
	return true
}
