// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// MaxNameLength is the maximum length of a command name.
const MaxNameLength = 20

var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,19}$`)

// ValidateCommandName checks that name starts with a letter and holds only
// letters, digits, underscores and hyphens.
func ValidateCommandName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return oops.Code(CodeInvalidName).Errorf("command name cannot be empty")
	case len(trimmed) > MaxNameLength:
		return oops.Code(CodeInvalidName).
			With("length", len(trimmed)).
			With("max", MaxNameLength).
			Errorf("command name exceeds maximum length of %d", MaxNameLength)
	case !namePattern.MatchString(trimmed):
		return oops.Code(CodeInvalidName).
			With("name", trimmed).
			Errorf("command name must start with a letter and contain only letters, digits, _ or -")
	}
	return nil
}
