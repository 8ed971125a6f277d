// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transaction

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/region"
)

// Buy transfers a buy region to actor. A region in resell mode is bought from
// its current owner at the resell price; otherwise the region must be for sale.
func (e *Engine) Buy(ctx context.Context, actor Actor, name string) error {
	ctx, done := e.track(ctx, access.ActionBuy, name, actor)
	return done(e.buy(ctx, actor, name))
}

func (e *Engine) buy(ctx context.Context, actor Actor, name string) error {
	r, err := e.lookup(name, region.KindBuy)
	if err != nil {
		return err
	}
	resource := access.RegionResource(r.Name)
	if actor.IsSystem() {
		return ErrNoPermission(access.ActionBuy, resource)
	}
	if err := e.can(ctx, actor, access.ActionBuy, resource); err != nil {
		return err
	}

	reselling := r.State() == region.StateResell && !r.IsOwnedBy(actor.ID)
	if r.IsOwned() && !reselling {
		if r.IsOwnedBy(actor.ID) {
			return ErrAlreadyYours(r)
		}
		return ErrAlreadyOwned(r)
	}

	layers := e.registry.Layers(r)
	if err := e.checkRestrictions(actor, r, layers); err != nil {
		return err
	}
	if err := e.checkLimits(ctx, actor, r, limits.ActionBuy); err != nil {
		return err
	}

	price := layers.Float(region.KeyBuyPrice)
	if reselling {
		price = r.Buy.ResellPrice
	}
	if err := e.charge(ctx, actor, r.World, price); err != nil {
		return err
	}

	buyerName := e.actorName(actor)
	if reselling {
		seller, sellerName := r.Owner(), r.OwnerName()
		e.payout(ctx, access.ActionResell, seller, r, price)
		r.DisableResell()
		e.hooks.Run(ctx, r, region.EventResell, true)
		r.SetOwner(actor.ID, buyerName)
		e.registry.MarkDirty(r.Name)

		tags := e.Tags(r)
		tags["seller"] = sellerName
		tags["buyer"] = buyerName
		tags["resellprice"] = e.money(price)
		e.notify(ctx, actor.ID, notify.KeyBuySuccessResale, tags)
		e.notify(ctx, seller, notify.KeyBuySuccessSeller, tags)
		e.hooks.Run(ctx, r, region.EventResell, false)
		return nil
	}

	e.hooks.Run(ctx, r, region.EventBought, true)
	r.SetOwner(actor.ID, buyerName)
	e.registry.MarkDirty(r.Name)
	e.notify(ctx, actor.ID, notify.KeyBuySuccess, e.Tags(r))
	e.hooks.Run(ctx, r, region.EventBought, false)
	return nil
}

// Sell returns a sold region to the market. Actors sell their own region with
// the sell permission on own:<name> and anybody else's with other:<name>; the
// System actor may always sell. Once eligible the sale always completes.
func (e *Engine) Sell(ctx context.Context, actor Actor, name string, giveMoneyBack bool) error {
	ctx, done := e.track(ctx, access.ActionSell, name, actor)
	return done(e.sellChecked(ctx, actor, name, giveMoneyBack))
}

func (e *Engine) sellChecked(ctx context.Context, actor Actor, name string, giveMoneyBack bool) error {
	r, err := e.lookup(name, region.KindBuy)
	if err != nil {
		return err
	}
	if !r.IsOwned() {
		return ErrNotSold(r)
	}
	if err := e.canManage(ctx, actor, r, access.ActionSell); err != nil {
		return err
	}
	e.sell(ctx, r, giveMoneyBack, notify.KeySellSuccess)
	return nil
}

// sell clears ownership of a buy region. It cannot fail.
func (e *Engine) sell(ctx context.Context, r *region.Region, giveMoneyBack bool, key string) {
	owner := r.Owner()
	tags := e.Tags(r)

	e.hooks.Run(ctx, r, region.EventSold, true)
	r.DisableResell()
	if giveMoneyBack {
		layers := e.registry.Layers(r)
		refund := refundShare(layers.Float(region.KeyBuyPrice), layers.Float(region.KeyBuyMoneyBack))
		e.payout(ctx, access.ActionSell, owner, r, refund)
		tags["moneyback"] = e.money(refund)
	}
	r.ClearFriends()
	r.SetOwner(uuid.Nil, "")
	e.registry.MarkDirty(r.Name)
	e.notify(ctx, owner, key, tags)
	e.hooks.Run(ctx, r, region.EventSold, false)
}

// EnableResell offers a sold region for resale at price.
func (e *Engine) EnableResell(ctx context.Context, actor Actor, name string, price float64) error {
	ctx, done := e.track(ctx, access.ActionResell, name, actor)
	return done(e.setResell(ctx, actor, name, true, price))
}

// DisableResell takes a region off the resale market. Disabling a region that
// is not for resale succeeds without change.
func (e *Engine) DisableResell(ctx context.Context, actor Actor, name string) error {
	ctx, done := e.track(ctx, access.ActionResell, name, actor)
	return done(e.setResell(ctx, actor, name, false, 0))
}

func (e *Engine) setResell(ctx context.Context, actor Actor, name string, enable bool, price float64) error {
	r, err := e.lookup(name, region.KindBuy)
	if err != nil {
		return err
	}
	if enable && (price < 0 || math.IsNaN(price) || math.IsInf(price, 0)) {
		return ErrInvalidPrice(price)
	}
	if !r.IsOwned() {
		return ErrNotSold(r)
	}
	if r.IsOwnedBy(actor.ID) {
		if err := e.can(ctx, actor, access.ActionResell, access.OwnResource(r.Name)); err != nil {
			return err
		}
	} else if !e.access.Check(ctx, actor.Subject(), access.ActionResell, access.OtherResource(r.Name)) {
		return ErrNotOwner(r)
	}

	key := notify.KeyResellDisabled
	if enable {
		r.EnableResell(price)
		key = notify.KeyResellEnabled
	} else {
		if !r.Buy.ResellMode {
			return nil
		}
		r.DisableResell()
	}
	e.registry.MarkDirty(r.Name)
	e.notify(ctx, r.Owner(), key, e.Tags(r))
	return nil
}
