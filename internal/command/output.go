// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"fmt"
	"io"
	"log/slog"
)

// writeLine writes msg and a newline, logging write failures.
func writeLine(w io.Writer, msg string) {
	if _, err := fmt.Fprintln(w, msg); err != nil {
		slog.Warn("failed to write command output", "error", err)
	}
}
