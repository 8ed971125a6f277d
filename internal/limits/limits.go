// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package limits decides whether a player may take on another region.
package limits

import (
	"fmt"
	"strings"

	"github.com/holomush/plotshop/internal/region"
)

// Unlimited disables a cap.
const Unlimited = -1

// Action is the kind of acquisition being evaluated.
type Action string

// Actions.
const (
	ActionRent Action = "rent"
	ActionBuy  Action = "buy"
)

// Factor names the cap that blocked an acquisition.
type Factor string

// Factors.
const (
	FactorNone  Factor = "NONE"
	FactorTotal Factor = "TOTAL"
	FactorRents Factor = "RENTS"
	FactorBuys  Factor = "BUYS"
)

// Caps bounds how many regions a player may hold. Unlimited disables a field.
type Caps struct {
	Total int
	Rents int
	Buys  int
}

// NoCaps is a Caps with every field unlimited.
var NoCaps = Caps{Total: Unlimited, Rents: Unlimited, Buys: Unlimited}

// GroupCaps applies Caps to the regions of one group.
type GroupCaps struct {
	Group string
	Caps  Caps
}

// Config holds the global caps and the ordered per-group caps.
type Config struct {
	Default Caps
	Groups  []GroupCaps
}

// Result is the outcome of an evaluation.
type Result struct {
	Allowed bool
	Factor  Factor
	Maximum int
	Current int
	// Group is empty when the global caps decided.
	Group string
}

// Allowed is the result returned when nothing blocks the acquisition.
var Allowed = Result{Allowed: true, Factor: FactorNone, Maximum: Unlimited}

func (r Result) String() string {
	if r.Allowed {
		return "allowed"
	}
	scope := "global"
	if r.Group != "" {
		scope = "group " + r.Group
	}
	return fmt.Sprintf("%s limit reached (%s): %d/%d", strings.ToLower(string(r.Factor)), scope, r.Current, r.Maximum)
}

// Evaluator checks acquisitions against configured caps. It has no side effects.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an evaluator for cfg.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

type counts struct {
	total, rents, buys int
}

func count(owned []*region.Region, match func(*region.Region) bool) counts {
	var c counts
	for _, r := range owned {
		if !match(r) {
			continue
		}
		c.total++
		switch r.Kind {
		case region.KindRent:
			c.rents++
		case region.KindBuy:
			c.buys++
		}
	}
	return c
}

// violation returns a failing result when current has reached maximum.
func violation(factor Factor, maximum, current int, group string) (Result, bool) {
	if maximum == Unlimited || maximum < 0 || current < maximum {
		return Result{}, false
	}
	return Result{Factor: factor, Maximum: maximum, Current: current, Group: group}, true
}

func kindCheck(action Action, caps Caps, c counts, group string) (Result, bool) {
	if action == ActionRent {
		return violation(FactorRents, caps.Rents, c.rents, group)
	}
	return violation(FactorBuys, caps.Buys, c.buys, group)
}

// Evaluate decides whether a player holding owned may acquire target through action.
//
// Group caps are checked for every group of target in the target's group order.
// Any group violation beats a global one. Among group violations the one with
// the smallest headroom (maximum minus current) wins and ties go to the first
// found, with the total checked before the kind cap inside a group. Global caps
// check the total before the kind cap.
func (e *Evaluator) Evaluate(target *region.Region, action Action, owned []*region.Region) Result {
	var (
		best  Result
		found bool
	)
	consider := func(r Result, ok bool) {
		if !ok {
			return
		}
		if !found || r.Maximum-r.Current < best.Maximum-best.Current {
			best, found = r, true
		}
	}

	for _, groupName := range target.Groups {
		caps, ok := e.groupCaps(groupName)
		if !ok {
			continue
		}
		c := count(owned, func(r *region.Region) bool { return r.InGroup(groupName) })
		consider(violation(FactorTotal, caps.Total, c.total, groupName))
		consider(kindCheck(action, caps, c, groupName))
	}
	if found {
		return best
	}

	c := count(owned, func(*region.Region) bool { return true })
	if r, ok := violation(FactorTotal, e.cfg.Default.Total, c.total, ""); ok {
		return r
	}
	if r, ok := kindCheck(action, e.cfg.Default, c, ""); ok {
		return r
	}
	return Allowed
}

func (e *Evaluator) groupCaps(name string) (Caps, bool) {
	for _, g := range e.cfg.Groups {
		if strings.EqualFold(g.Group, name) {
			return g.Caps, true
		}
	}
	return Caps{}, false
}
