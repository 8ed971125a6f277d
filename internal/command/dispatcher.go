// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/logging"
)

var tracer = otel.Tracer("plotshop/command")

// Dispatcher handles command parsing, permission checks, and execution.
type Dispatcher struct {
	registry    *Registry
	access      access.AccessControl
	rateLimiter *RateLimiter // optional, can be nil
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter configures the dispatcher to use rate limiting.
// If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// NewDispatcher creates a new command dispatcher with the given registry
// and access control. Returns an error if registry or ac is nil.
func NewDispatcher(registry *Registry, ac access.AccessControl, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if ac == nil {
		return nil, ErrNilAccessControl
	}
	d := &Dispatcher{
		registry: registry,
		access:   ac,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Registry returns the command registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch parses and executes a command.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *Execution) (err error) {
	if exec.Services == nil {
		return ErrNilServices()
	}

	parsed, err := Parse(input)
	if err != nil {
		return err
	}

	metrics := NewMetricsRecorder()
	defer metrics.Record()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.String("actor.subject", exec.Actor.Subject()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	subject := exec.Actor.Subject()
	ctx = logging.With(ctx, "actor", subject)
	if d.rateLimiter != nil && !exec.Actor.IsSystem() &&
		!d.access.Check(ctx, subject, access.ActionBypass, ResourceRateLimit) {
		if allowed, wait := d.rateLimiter.Allow(exec.Actor.ID); !allowed {
			span.SetAttributes(
				attribute.Bool("command.rate_limited", true),
				attribute.Int64("command.cooldown_ms", wait.Milliseconds()),
			)
			metrics.SetCommandName(parsed.Name)
			metrics.SetStatus(StatusRateLimited)
			err = ErrRateLimited(wait)
			return err
		}
	}

	entry, ok := d.registry.Get(parsed.Name)
	if !ok {
		metrics.SetCommandName("unknown")
		metrics.SetStatus(StatusNotFound)
		err = ErrUnknownCommand(parsed.Name)
		return err
	}
	metrics.SetCommandName(entry.Name)

	if !d.access.Check(ctx, subject, access.ActionExecute, entry.Capability()) {
		metrics.SetStatus(StatusPermissionDenied)
		err = ErrPermissionDenied(entry.Name, entry.Capability())
		return err
	}

	exec.Args = parsed.Args
	err = entry.Handler(ctx, exec)
	if err != nil {
		slog.WarnContext(ctx, "command execution failed",
			"command", entry.Name,
			"error", err,
		)
		return err
	}
	metrics.SetStatus(StatusSuccess)
	return nil
}

// Run dispatches input and writes a player-facing message to the execution
// output when it fails. The error is returned for logging.
func (d *Dispatcher) Run(ctx context.Context, input string, exec *Execution) error {
	err := d.Dispatch(ctx, input, exec)
	if err != nil && exec.Output != nil {
		writeLine(exec.Output, PlayerMessage(err))
	}
	return err
}
