// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hooks runs configured scripts around region lifecycle events.
package hooks

import (
	"context"

	"github.com/holomush/plotshop/internal/region"
)

// Runner runs the hooks registered for an event. Failures are the runner's
// concern; a transaction never fails because of a hook.
type Runner interface {
	Run(ctx context.Context, r *region.Region, ev region.Event, before bool)
}

// Nop ignores every event.
type Nop struct{}

// Run does nothing.
func (Nop) Run(context.Context, *region.Region, region.Event, bool) {}

// Scripts holds the Lua source run before and after one event.
type Scripts struct {
	Before string `koanf:"before" json:"before,omitempty"`
	After  string `koanf:"after" json:"after,omitempty"`
}

// Call is one recorded hook invocation.
type Call struct {
	Region string
	Event  region.Event
	Before bool
	State  region.State
}

// Recorder captures hook invocations along with the region state at call time.
type Recorder struct {
	Calls []Call
}

// Run records the call.
func (r *Recorder) Run(_ context.Context, reg *region.Region, ev region.Event, before bool) {
	r.Calls = append(r.Calls, Call{Region: reg.Name, Event: ev, Before: before, State: reg.State()})
}
