// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import (
	"regexp"

	"github.com/samber/oops"
)

// MaxNameLength bounds region and group names.
const MaxNameLength = 64

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// ValidateName checks that name can be used as a region or group identifier.
func ValidateName(name string) error {
	switch {
	case name == "":
		return oops.Code(CodeInvalidName).Errorf("name cannot be empty")
	case len(name) > MaxNameLength:
		return oops.Code(CodeInvalidName).
			With("name", name).
			Errorf("name exceeds maximum length of %d", MaxNameLength)
	case !nameRegex.MatchString(name):
		return oops.Code(CodeInvalidName).
			With("name", name).
			Errorf("name %q may only contain letters, digits, '-' and '_'", name)
	}
	return nil
}
