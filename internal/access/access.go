// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access provides permission checks for plotshop.
//
// All parameters use prefixed string format:
//   - subject: "player:<uuid>", "system"
//   - action: "buy", "rent", "sell", "unrent", "resell", "create", "delete", "bypass", "execute"
//   - resource: "region:plot01", "own:plot01", "other:plot01", "limits", "plotshop.stack"
package access

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// AccessControl checks permissions.
//
//nolint:revive // stutter kept for clarity at call sites
type AccessControl interface {
	// Check returns true if subject is allowed to perform action on resource.
	// Unknown subjects are denied.
	Check(ctx context.Context, subject, action, resource string) bool
}

// Subject prefixes.
const (
	SubjectSystem = "system"
	SubjectPlayer = "player:"
)

// Actions.
const (
	ActionBuy     = "buy"
	ActionRent    = "rent"
	ActionSell    = "sell"
	ActionUnrent  = "unrent"
	ActionResell  = "resell"
	ActionCreate  = "create"
	ActionDelete  = "delete"
	ActionBypass  = "bypass"
	ActionExecute = "execute"
)

// ResourceLimits is the resource checked with ActionBypass to skip limits.
const ResourceLimits = "limits"

// PlayerSubject returns the subject string for a player.
func PlayerSubject(id uuid.UUID) string {
	if id == uuid.Nil {
		return SubjectSystem
	}
	return SubjectPlayer + id.String()
}

// RegionResource returns the resource string for any region.
func RegionResource(name string) string {
	return "region:" + strings.ToLower(name)
}

// OwnResource is the resource for acting on a region the subject owns.
func OwnResource(name string) string {
	return "own:" + strings.ToLower(name)
}

// OtherResource is the resource for acting on someone else's region.
func OtherResource(name string) string {
	return "other:" + strings.ToLower(name)
}

// ParseSubject splits a subject string into prefix and ID.
// Returns ("system", "") for "system" and ("", subject) without a colon.
func ParseSubject(subject string) (prefix, id string) {
	if subject == "" {
		return "", ""
	}
	if subject == SubjectSystem {
		return SubjectSystem, ""
	}
	prefix, id, found := strings.Cut(subject, ":")
	if !found {
		return "", subject
	}
	return prefix, id
}
