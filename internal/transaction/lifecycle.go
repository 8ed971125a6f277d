// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transaction

import (
	"context"
	"log/slog"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/pkg/errutil"
)

// CreateRequest describes a region to create.
type CreateRequest struct {
	Name   string
	World  string
	Kind   region.Kind
	Cuboid region.Cuboid
	// Group is optional; the group is created when missing.
	Group    string
	Settings region.Settings
}

// Create registers a new region in the spatial index and the registry.
func (e *Engine) Create(ctx context.Context, actor Actor, req CreateRequest) (*region.Region, error) {
	ctx, done := e.track(ctx, access.ActionCreate, req.Name, actor)
	r, err := e.create(ctx, actor, req)
	return r, done(err)
}

// NameAvailable reports whether name is free in both the registry and the
// spatial index of world.
func (e *Engine) NameAvailable(world, name string) bool {
	if e.registry.Exists(name) {
		return false
	}
	_, taken := e.spatial.Lookup(world, name)
	return !taken
}

func (e *Engine) create(ctx context.Context, actor Actor, req CreateRequest) (*region.Region, error) {
	if err := region.ValidateName(req.Name); err != nil {
		return nil, err
	}
	kind, err := region.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	if err := e.can(ctx, actor, access.ActionCreate, access.RegionResource(req.Name)); err != nil {
		return nil, err
	}
	if !e.NameAvailable(req.World, req.Name) {
		return nil, region.ErrNameTaken(req.Name)
	}
	if err := e.spatial.Create(ctx, req.World, req.Name, req.Cuboid); err != nil {
		return nil, ErrSpatialFailed(req.Name, err)
	}

	r := region.New(req.Name, req.World, kind, req.Cuboid, e.clock())
	r.Settings = req.Settings
	if req.Group != "" {
		e.registry.GroupOrCreate(req.Group)
	}

	e.hooks.Run(ctx, r, region.EventCreated, true)
	if err := e.registry.Add(r); err != nil {
		if rmErr := e.spatial.Remove(req.World, req.Name); rmErr != nil {
			errutil.LogWarn(ctx, slog.Default(), "spatial rollback failed", rmErr)
		}
		return nil, err
	}
	if req.Group != "" {
		if err := e.registry.AddToGroup(r.Name, req.Group); err != nil {
			errutil.LogWarn(ctx, slog.Default(), "group membership failed", err, "group", req.Group)
		}
	}
	e.registry.MarkDirty(r.Name)
	e.hooks.Run(ctx, r, region.EventCreated, false)
	return r, nil
}

// Delete removes a region from the registry, its groups and the spatial index.
// Persistence picks up the deletion on the next flush.
func (e *Engine) Delete(ctx context.Context, actor Actor, name string) error {
	ctx, done := e.track(ctx, access.ActionDelete, name, actor)
	return done(e.delete(ctx, actor, name))
}

func (e *Engine) delete(ctx context.Context, actor Actor, name string) error {
	r, ok := e.registry.Get(name)
	if !ok {
		return ErrRegionNotFound(name)
	}
	if err := e.can(ctx, actor, access.ActionDelete, access.RegionResource(r.Name)); err != nil {
		return err
	}

	e.hooks.Run(ctx, r, region.EventDeleted, true)
	e.registry.Remove(r.Name)
	if err := e.spatial.Remove(r.World, r.Name); err != nil {
		errutil.LogWarn(ctx, slog.Default(), "spatial remove failed", err)
	}
	e.hooks.Run(ctx, r, region.EventDeleted, false)
	slog.InfoContext(ctx, "region deleted")
	return nil
}

// EnsureGroup creates the named group when it does not exist yet.
func (e *Engine) EnsureGroup(name string) {
	e.registry.GroupOrCreate(name)
}
