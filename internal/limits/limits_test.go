// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package limits_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/region"
)

var player = uuid.New()

func owned(kind region.Kind, n int, groups ...string) []*region.Region {
	out := make([]*region.Region, 0, n)
	for range n {
		r := region.New(uuid.NewString(), "world", kind, region.Cuboid{}, time.Now())
		r.Groups = groups
		r.SetOwner(player, "alice")
		out = append(out, r)
	}
	return out
}

func target(kind region.Kind, groups ...string) *region.Region {
	r := region.New("target", "world", kind, region.Cuboid{}, time.Now())
	r.Groups = groups
	return r
}

func TestEvaluate_GlobalTotalCap(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{
		Default: limits.Caps{Total: 3, Rents: limits.Unlimited, Buys: limits.Unlimited},
	})
	held := append(owned(region.KindRent, 2), owned(region.KindBuy, 1)...)

	res := e.Evaluate(target(region.KindBuy), limits.ActionBuy, held)

	assert.Equal(t, limits.Result{Factor: limits.FactorTotal, Maximum: 3, Current: 3}, res)
	assert.False(t, res.Allowed)
	assert.Equal(t, "total limit reached (global): 3/3", res.String())
}

func TestEvaluate_GlobalTotalBeforeKind(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{
		Default: limits.Caps{Total: 2, Rents: 1, Buys: limits.Unlimited},
	})

	res := e.Evaluate(target(region.KindRent), limits.ActionRent, owned(region.KindRent, 2))

	assert.Equal(t, limits.FactorTotal, res.Factor)
}

func TestEvaluate_KindCapOnlyCountsMatchingKind(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{
		Default: limits.Caps{Total: limits.Unlimited, Rents: 1, Buys: 5},
	})
	held := owned(region.KindBuy, 3)

	assert.True(t, e.Evaluate(target(region.KindRent), limits.ActionRent, held).Allowed)

	held = append(held, owned(region.KindRent, 1)...)
	res := e.Evaluate(target(region.KindRent), limits.ActionRent, held)
	assert.Equal(t, limits.Result{Factor: limits.FactorRents, Maximum: 1, Current: 1}, res)
}

func TestEvaluate_GroupViolationBeatsGlobal(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{
		Default: limits.Caps{Total: 1, Rents: limits.Unlimited, Buys: limits.Unlimited},
		Groups: []limits.GroupCaps{
			{Group: "market", Caps: limits.Caps{Total: 2, Rents: limits.Unlimited, Buys: limits.Unlimited}},
		},
	})
	held := owned(region.KindBuy, 2, "market")

	res := e.Evaluate(target(region.KindBuy, "market"), limits.ActionBuy, held)

	assert.Equal(t, limits.Result{Factor: limits.FactorTotal, Maximum: 2, Current: 2, Group: "market"}, res)
}

func TestEvaluate_SmallestHeadroomWinsAmongGroups(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{
		Default: limits.NoCaps,
		Groups: []limits.GroupCaps{
			{Group: "a", Caps: limits.Caps{Total: 2, Rents: limits.Unlimited, Buys: limits.Unlimited}},
			{Group: "b", Caps: limits.Caps{Total: limits.Unlimited, Rents: limits.Unlimited, Buys: 1}},
		},
	})
	// 2 in "a" (headroom 0), 3 buys in "b" (headroom -2).
	held := append(owned(region.KindBuy, 2, "a"), owned(region.KindBuy, 3, "b")...)

	res := e.Evaluate(target(region.KindBuy, "a", "b"), limits.ActionBuy, held)

	assert.Equal(t, limits.Result{Factor: limits.FactorBuys, Maximum: 1, Current: 3, Group: "b"}, res)
}

func TestEvaluate_TiesGoToFirstFound(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{
		Default: limits.NoCaps,
		Groups: []limits.GroupCaps{
			{Group: "a", Caps: limits.Caps{Total: 1, Rents: limits.Unlimited, Buys: 1}},
			{Group: "b", Caps: limits.Caps{Total: 1, Rents: limits.Unlimited, Buys: limits.Unlimited}},
		},
	})
	held := owned(region.KindBuy, 1, "a", "b")

	res := e.Evaluate(target(region.KindBuy, "b", "a"), limits.ActionBuy, held)

	assert.Equal(t, "b", res.Group, "region group order decides among equal headroom")
	assert.Equal(t, limits.FactorTotal, res.Factor, "total is checked before kind")
}

func TestEvaluate_GroupsWithoutCapsAreIgnored(t *testing.T) {
	e := limits.NewEvaluator(limits.Config{Default: limits.NoCaps})

	res := e.Evaluate(target(region.KindBuy, "nocaps"), limits.ActionBuy, owned(region.KindBuy, 50, "nocaps"))

	assert.Equal(t, limits.Allowed, res)
	assert.Equal(t, "allowed", res.String())
}
