// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand is split command input.
type ParsedCommand struct {
	Name string // first whitespace-delimited token
	Args string // the rest, internal whitespace preserved
	Raw  string
}

// Parse splits raw input into command name and arguments. A leading slash is
// dropped so "/buy plot01" and "buy plot01" are the same command.
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(input), "/")
	if trimmed == "" {
		return nil, oops.Code(CodeEmptyInput).Errorf("no command provided")
	}

	idx := strings.IndexAny(trimmed, " \t")
	if idx == -1 {
		return &ParsedCommand{Name: trimmed, Raw: input}, nil
	}
	return &ParsedCommand{
		Name: trimmed[:idx],
		Args: strings.TrimLeft(trimmed[idx+1:], " \t"),
		Raw:  input,
	}, nil
}

// Fields splits an argument string on whitespace.
func Fields(args string) []string {
	return strings.Fields(args)
}
