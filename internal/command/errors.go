// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// Error codes for dispatch failures.
const (
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeInvalidArgs      = "INVALID_ARGS"
	CodeRateLimited      = "RATE_LIMITED"
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeInvalidName      = "INVALID_COMMAND_NAME"
	CodeNilHandler       = "NIL_HANDLER"
	CodeNilServices      = "NIL_SERVICES"
)

// Sentinel errors for dispatcher construction.
var (
	ErrNilRegistry      = errors.New("command registry is required")
	ErrNilAccessControl = errors.New("access control is required")
)

const somethingWrong = "Something went wrong. Try again."

// ErrUnknownCommand creates an error for an unregistered command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrPermissionDenied creates an error for a missing execute permission.
func ErrPermissionDenied(cmd, capability string) error {
	return oops.Code(CodePermissionDenied).
		With("command", cmd).
		With("capability", capability).
		Errorf("permission denied for command %s", cmd)
}

// ErrInvalidArgs creates an error for malformed arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrInvalidArg creates an error for one bad argument with a player-facing reason.
func ErrInvalidArg(cmd, message string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("message", message).
		Errorf("invalid argument: %s", message)
}

// ErrRateLimited creates an error for a player sending commands too fast.
func ErrRateLimited(wait time.Duration) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", wait.Milliseconds()).
		Errorf("Too many commands. Please slow down.")
}

// ErrNilHandler creates an error for registering a command without a handler.
func ErrNilHandler(cmd string) error {
	return oops.Code(CodeNilHandler).With("command", cmd).Errorf("command %s has no handler", cmd)
}

// ErrNilServices creates an error for an execution without services.
func ErrNilServices() error {
	return oops.Code(CodeNilServices).Errorf("command execution has no services")
}

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return somethingWrong
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return somethingWrong
	}
	ctx := oopsErr.Context()

	switch oopsErr.Code() {
	case CodeUnknownCommand:
		return "Unknown command. Try 'help'."
	case CodePermissionDenied:
		return "You don't have permission to do that."
	case CodeInvalidArgs:
		if msg, ok := ctx["message"].(string); ok && msg != "" {
			return msg
		}
		if usage, ok := ctx["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	case CodeRateLimited:
		return "Too many commands. Please slow down."
	case CodeEmptyInput:
		return "Type a command. Try 'help'."
	}
	if msg, ok := ctx["message"].(string); ok && msg != "" {
		return msg
	}
	return somethingWrong
}
