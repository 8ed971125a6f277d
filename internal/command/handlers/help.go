// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/holomush/plotshop/internal/command"
)

// HelpHandler lists the commands or shows the help text of one.
func HelpHandler(ctx context.Context, exec *command.Execution) error {
	args := command.Fields(exec.Args)
	reg := exec.Services.Commands
	if reg == nil {
		return command.ErrNilServices()
	}
	if len(args) == 0 {
		var sb strings.Builder
		sb.WriteString("Commands:")
		for _, e := range reg.All() {
			fmt.Fprintf(&sb, "\n  %-40s %s", e.Usage, e.Help)
		}
		writeOutput(ctx, exec, "help", sb.String())
		return nil
	}
	entry, ok := reg.Get(args[0])
	if !ok {
		return command.ErrUnknownCommand(args[0])
	}
	text := entry.HelpText
	if text == "" {
		text = entry.Help
	}
	writeOutputf(ctx, exec, "help", "Usage: %s\n%s\n", entry.Usage, text)
	return nil
}

func completeCommands(_ context.Context, exec *command.Execution, args []string) []string {
	if len(args) != 1 || exec.Services.Commands == nil {
		return nil
	}
	var names []string
	for _, e := range exec.Services.Commands.All() {
		names = append(names, e.Name)
	}
	return names
}
