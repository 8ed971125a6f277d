// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes raised by the region model.
const (
	CodeNameTaken    = "NAME_TAKEN"
	CodeInvalidName  = "INVALID_NAME"
	CodeInvalidKind  = "INVALID_KIND"
	CodeNotFound     = "REGION_NOT_FOUND"
	CodeGroupMissing = "GROUP_NOT_FOUND"
)

// ErrNotFound is the sentinel wrapped by lookups that miss.
var ErrNotFound = errors.New("region not found")

// ErrNameTaken creates an error for a duplicate region name.
func ErrNameTaken(name string) error {
	return oops.Code(CodeNameTaken).
		With("region", name).
		With("message", "A region named "+name+" already exists.").
		Errorf("region name %q already taken", name)
}

// ErrRegionNotFound creates an error for an unknown region.
func ErrRegionNotFound(name string) error {
	return oops.Code(CodeNotFound).
		With("region", name).
		With("message", "There is no region called "+name+".").
		Wrap(ErrNotFound)
}
