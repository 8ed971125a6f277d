// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sweeper releases regions whose owners went inactive and ends rents
// that ran out.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/scheduler"
	"github.com/holomush/plotshop/internal/transaction"
	"github.com/holomush/plotshop/pkg/errutil"
)

// Releaser ends ownership on behalf of the server.
// *transaction.Engine satisfies it.
type Releaser interface {
	Release(ctx context.Context, name string, reason transaction.Reason) error
	WarnExpiry(ctx context.Context, name string) bool
}

// Scheduler runs recurring tasks.
type Scheduler interface {
	ScheduleRecurring(name string, interval uint64, task scheduler.Task) (cancel func())
}

// Config sets how often each sweep runs, in scheduler ticks.
type Config struct {
	InactiveIntervalTicks uint64 `koanf:"inactive-interval-ticks" json:"inactive-interval-ticks"`
	ExpiryIntervalTicks   uint64 `koanf:"expiry-interval-ticks" json:"expiry-interval-ticks"`
}

// DefaultConfig returns the default sweep intervals.
func DefaultConfig() Config {
	return Config{InactiveIntervalTicks: 1200, ExpiryIntervalTicks: 200}
}

// Sweeper scans the registry for regions to release.
type Sweeper struct {
	registry *region.Registry
	releaser Releaser
	players  players.Directory
	clock    func() time.Time
}

// New creates a Sweeper. A nil clock uses time.Now.
func New(registry *region.Registry, releaser Releaser, dir players.Directory, clock func() time.Time) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{registry: registry, releaser: releaser, players: dir, clock: clock}
}

// Schedule registers both sweeps as recurring tasks and returns a function
// cancelling them.
func (s *Sweeper) Schedule(sched Scheduler, cfg Config) (cancel func()) {
	stopInactive := sched.ScheduleRecurring("sweep-inactive", cfg.InactiveIntervalTicks,
		scheduler.TaskFunc(func(ctx context.Context) scheduler.Status {
			s.SweepInactive(ctx)
			return scheduler.Continue
		}))
	stopExpiry := sched.ScheduleRecurring("sweep-expiry", cfg.ExpiryIntervalTicks,
		scheduler.TaskFunc(func(ctx context.Context) scheduler.Status {
			s.SweepExpired(ctx)
			return scheduler.Continue
		}))
	return func() {
		stopInactive()
		stopExpiry()
	}
}

// inactivityKey returns the threshold setting for the region kind.
func inactivityKey(kind region.Kind) string {
	if kind == region.KindRent {
		return region.KeyRentInactiveTime
	}
	return region.KeyBuyInactiveTime
}

// SweepInactive sells or unrents, with money back, every region whose owner has
// been inactive longer than the configured threshold. Owners never seen, exempt
// owners and non-positive thresholds are skipped. It returns the released names.
func (s *Sweeper) SweepInactive(ctx context.Context) []string {
	now := s.clock()
	var released []string
	for _, r := range s.registry.All() {
		if !r.IsOwned() {
			continue
		}
		threshold := s.registry.Layers(r).Duration(inactivityKey(r.Kind))
		if threshold <= 0 {
			continue
		}
		owner := r.Owner()
		if s.players.IsExempt(owner) {
			continue
		}
		last := s.players.LastActive(owner)
		if last.IsZero() {
			continue
		}
		inactive := now.Sub(last)
		if inactive <= threshold {
			continue
		}

		slog.InfoContext(ctx, "releasing region of inactive owner",
			"region", r.Name,
			"state", string(r.State()),
			"owner", owner.String(),
			"owner_name", r.OwnerName(),
			"inactive", inactive.String(),
			"threshold", threshold.String(),
		)
		if err := s.releaser.Release(ctx, r.Name, transaction.ReasonInactive); err != nil {
			errutil.LogWarn(ctx, slog.Default(), "inactive release failed", err, "region", r.Name)
			continue
		}
		RecordRelease(transaction.ReasonInactive)
		released = append(released, r.Name)
	}
	return released
}

// SweepExpired unrents every rent whose time ran out and warns renters whose
// rent is about to expire. It returns the unrented names.
func (s *Sweeper) SweepExpired(ctx context.Context) []string {
	now := s.clock()
	var expired []string
	for _, r := range s.registry.All() {
		if r.Rent == nil || !r.IsOwned() {
			continue
		}
		if now.Before(r.Rent.RentedUntil) {
			if s.releaser.WarnExpiry(ctx, r.Name) {
				RecordWarning()
			}
			continue
		}

		slog.InfoContext(ctx, "rent expired",
			"region", r.Name,
			"renter", r.Owner().String(),
			"rented_until", r.Rent.RentedUntil.UTC().Format(time.RFC3339),
		)
		if err := s.releaser.Release(ctx, r.Name, transaction.ReasonExpired); err != nil {
			errutil.LogWarn(ctx, slog.Default(), "expiry release failed", err, "region", r.Name)
			continue
		}
		RecordRelease(transaction.ReasonExpired)
		expired = append(expired, r.Name)
	}
	return expired
}
