// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"slices"
	"strings"

	"github.com/holomush/plotshop/internal/access"
)

// Complete returns suggestions for the last word of input. The first word
// completes to command names the actor may execute; later words are handed
// to the command's completer. Suggestions are filtered by the typed prefix,
// ignoring case, and returned sorted without duplicates.
func (d *Dispatcher) Complete(ctx context.Context, exec *Execution, input string) []string {
	trimmed := strings.TrimPrefix(strings.TrimLeft(input, " \t"), "/")
	words := strings.Fields(trimmed)
	if trimmed == "" || strings.HasSuffix(trimmed, " ") || strings.HasSuffix(trimmed, "\t") {
		words = append(words, "")
	}
	if len(words) == 0 {
		words = []string{""}
	}

	if len(words) == 1 {
		var names []string
		for _, e := range d.registry.All() {
			if d.access.Check(ctx, exec.Actor.Subject(), access.ActionExecute, e.Capability()) {
				names = append(names, e.Name)
			}
		}
		return FilterPrefix(names, words[0])
	}

	entry, ok := d.registry.Get(words[0])
	if !ok || entry.Complete == nil {
		return nil
	}
	if !d.access.Check(ctx, exec.Actor.Subject(), access.ActionExecute, entry.Capability()) {
		return nil
	}
	args := words[1:]
	return FilterPrefix(entry.Complete(ctx, exec, args), args[len(args)-1])
}

// FilterPrefix keeps the candidates starting with prefix, ignoring case.
func FilterPrefix(candidates []string, prefix string) []string {
	prefix = strings.ToLower(prefix)
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
