// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package transaction implements the region lifecycle: creating, deleting,
// buying, renting, selling and unrenting regions against the economy.
//
// The Engine is not safe for concurrent use. Callers run every operation on the
// scheduler worker, which owns all region mutation.
package transaction

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/economy"
	"github.com/holomush/plotshop/internal/hooks"
	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/logging"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/spatial"
	"github.com/holomush/plotshop/pkg/errutil"
)

var tracer = otel.Tracer("plotshop/transaction")

// Actor is the player (or the system) performing a transaction.
type Actor struct {
	ID       uuid.UUID
	Name     string
	World    string
	Position *region.Point
}

// System acts on behalf of the server: the stack generator and the sweeper.
var System = Actor{Name: access.SubjectSystem}

// IsSystem reports whether the actor is the server itself.
func (a Actor) IsSystem() bool {
	return a.ID == uuid.Nil
}

// Subject returns the access control subject for the actor.
func (a Actor) Subject() string {
	return access.PlayerSubject(a.ID)
}

// Config holds dependencies for the Engine.
type Config struct {
	Registry *region.Registry
	Spatial  spatial.Index
	Ledger   economy.Ledger
	Players  players.Directory
	Hooks    hooks.Runner
	Notifier notify.Notifier
	Access   access.AccessControl
	Limits   *limits.Evaluator
	Clock    func() time.Time
	Money    region.MoneyFormatter
}

// Engine runs region transactions.
type Engine struct {
	registry *region.Registry
	spatial  spatial.Index
	ledger   economy.Ledger
	players  players.Directory
	hooks    hooks.Runner
	notifier notify.Notifier
	access   access.AccessControl
	limits   *limits.Evaluator
	clock    func() time.Time
	money    region.MoneyFormatter
}

// NewEngine creates an Engine. Registry, Spatial, Ledger and Access are required;
// the rest fall back to no-op or default implementations.
func NewEngine(cfg Config) (*Engine, error) {
	switch {
	case cfg.Registry == nil:
		return nil, ErrNilRegistry
	case cfg.Spatial == nil:
		return nil, ErrNilSpatial
	case cfg.Ledger == nil:
		return nil, ErrNilLedger
	case cfg.Access == nil:
		return nil, ErrNilAccess
	}
	e := &Engine{
		registry: cfg.Registry,
		spatial:  cfg.Spatial,
		ledger:   cfg.Ledger,
		players:  cfg.Players,
		hooks:    cfg.Hooks,
		notifier: cfg.Notifier,
		access:   cfg.Access,
		limits:   cfg.Limits,
		clock:    cfg.Clock,
		money:    cfg.Money,
	}
	if e.hooks == nil {
		e.hooks = hooks.Nop{}
	}
	if e.notifier == nil {
		e.notifier = notify.Multi{}
	}
	if e.limits == nil {
		e.limits = limits.NewEvaluator(limits.Config{Default: limits.NoCaps})
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.money == nil {
		e.money = economy.NewFormatter("en", "", "", 2).Format
	}
	return e, nil
}

// Registry returns the registry the engine mutates.
func (e *Engine) Registry() *region.Registry {
	return e.registry
}

// Spatial returns the spatial index regions are created in.
func (e *Engine) Spatial() spatial.Index {
	return e.spatial
}

// Money formats an amount with the configured currency formatter.
func (e *Engine) Money(amount float64) string {
	return e.money(amount)
}

// Tags renders the replacement tags of r with the engine's currency format.
func (e *Engine) Tags(r *region.Region) map[string]string {
	return e.registry.Tags(r, e.money)
}

func (e *Engine) track(ctx context.Context, action, name string, actor Actor) (context.Context, func(error) error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "transaction."+action,
		trace.WithAttributes(
			attribute.String("region", name),
			attribute.String("subject", actor.Subject()),
		),
	)
	ctx = logging.With(ctx, "transaction", action, "region", name, "subject", actor.Subject())
	return ctx, func(err error) error {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, Code(err))
		}
		span.End()
		recordTransaction(action, err, time.Since(start))
		return err
	}
}

// lookup finds a region and checks its kind.
func (e *Engine) lookup(name string, kind region.Kind) (*region.Region, error) {
	r, ok := e.registry.Get(name)
	if !ok {
		return nil, ErrRegionNotFound(name)
	}
	if r.Kind != kind {
		return nil, ErrWrongKind(r, kind)
	}
	return r, nil
}

func (e *Engine) can(ctx context.Context, actor Actor, action, resource string) error {
	if !e.access.Check(ctx, actor.Subject(), action, resource) {
		return ErrNoPermission(action, resource)
	}
	return nil
}

// canManage checks action on the region as its owner or on someone else's region.
func (e *Engine) canManage(ctx context.Context, actor Actor, r *region.Region, action string) error {
	if r.IsOwnedBy(actor.ID) {
		return e.can(ctx, actor, action, access.OwnResource(r.Name))
	}
	return e.can(ctx, actor, action, access.OtherResource(r.Name))
}

// checkRestrictions enforces where the actor has to be to take the region.
func (e *Engine) checkRestrictions(actor Actor, r *region.Region, layers region.Layers) error {
	sameWorld := strings.EqualFold(actor.World, r.World)
	if layers.Bool(region.KeyRestrictedToWorld) && !sameWorld {
		return ErrRestrictedWorld(r, actor.World)
	}
	if layers.Bool(region.KeyRestrictedToRegion) {
		if !sameWorld || actor.Position == nil || !e.spatial.Contains(r.World, r.Name, *actor.Position) {
			return ErrRestrictedRegion(r)
		}
	}
	return nil
}

func (e *Engine) checkLimits(ctx context.Context, actor Actor, r *region.Region, action limits.Action) error {
	if e.access.Check(ctx, actor.Subject(), access.ActionBypass, access.ResourceLimits) {
		return nil
	}
	if res := e.limits.Evaluate(r, action, e.registry.OwnedBy(actor.ID)); !res.Allowed {
		return ErrLimitExceeded(res)
	}
	return nil
}

// charge verifies the balance covers amount and withdraws it.
func (e *Engine) charge(ctx context.Context, actor Actor, world string, amount float64) error {
	balance, err := e.ledger.Balance(ctx, actor.ID, world)
	if err != nil {
		return ErrPaymentFailed(err)
	}
	if balance < amount {
		return ErrInsufficientFunds(balance, amount, e.money)
	}
	if amount <= 0 {
		return nil
	}
	if err := e.ledger.Withdraw(ctx, actor.ID, world, amount); err != nil {
		return ErrPaymentFailed(err)
	}
	return nil
}

// payout deposits money after the transaction has committed. Failures are
// logged and counted, never returned.
func (e *Engine) payout(ctx context.Context, action string, player uuid.UUID, r *region.Region, amount float64) {
	if amount <= 0 || player == uuid.Nil {
		return
	}
	if err := e.ledger.Deposit(ctx, player, r.World, amount); err != nil {
		RecordPayoutFailure(action)
		errutil.LogWarn(ctx, slog.Default(), "payout failed", err,
			"payout", action,
			"player", player.String(),
			"amount", amount,
		)
	}
}

func (e *Engine) actorName(actor Actor) string {
	if actor.Name != "" || e.players == nil {
		return actor.Name
	}
	return e.players.Name(actor.ID)
}

func (e *Engine) notify(ctx context.Context, player uuid.UUID, key string, tags map[string]string) {
	if player == uuid.Nil {
		return
	}
	e.notifier.Notify(ctx, player, key, tags)
}

// refundShare returns the money-back amount for price at percent.
func refundShare(price, percent float64) float64 {
	if price <= 0 || percent <= 0 {
		return 0
	}
	return price * percent / 100
}

// intSetting reads an integer setting, using def when no layer sets it.
func intSetting(layers region.Layers, key string, def int) int {
	if _, ok := layers.Get(key); !ok {
		return def
	}
	return layers.Int(key)
}
