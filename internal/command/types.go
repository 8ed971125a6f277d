// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the command registry, parser, dispatcher and tab
// completion for the plotshop player commands.
package command

import (
	"context"
	"io"

	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/stack"
	"github.com/holomush/plotshop/internal/transaction"
)

// Handler runs a command.
type Handler func(ctx context.Context, exec *Execution) error

// Completer suggests values for the last element of args. args holds every
// argument typed so far; the last one may be empty or partial.
type Completer func(ctx context.Context, exec *Execution, args []string) []string

// Entry is a registered command.
type Entry struct {
	Name     string
	Handler  Handler
	Complete Completer
	Help     string // one line
	Usage    string // e.g. "buy <region>"
	HelpText string
}

// Capability returns the execute permission resource of the entry.
func (e Entry) Capability() string {
	return CapabilityPrefix + e.Name
}

// CapabilityPrefix prefixes command names to form execute permission resources.
const CapabilityPrefix = "plotshop."

// Execution carries the per-invocation state handed to a handler.
type Execution struct {
	Actor    transaction.Actor
	Args     string
	Output   io.Writer
	Services *Services
}

// Services are the collaborators handlers work with.
// Handlers MUST NOT keep references beyond the execution.
type Services struct {
	Engine     *transaction.Engine
	Stack      *stack.Generator
	Players    players.Directory
	Selections *Selections
	Commands   *Registry
}
