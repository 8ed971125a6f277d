// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

// Permission groups define reusable sets of permissions.
// Roles compose these groups rather than inheriting.

var tenantPowers = []string{
	"buy:region:*",
	"rent:region:*",
	"sell:own:*",
	"unrent:own:*",
	"resell:own:*",
	"execute:plotshop.{buy,rent,sell,unrent,resell,stopresell,info,help,select,face,tp}",
}

var landlordPowers = []string{
	"create:region:*",
	"delete:region:*",
	"execute:plotshop.{stack,delregion}",
}

var adminPowers = []string{
	"sell:other:*",
	"unrent:other:*",
	"resell:other:*",
	"bypass:**",
	"execute:**",
}

// DefaultRoles returns the default role definitions.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		"player":   tenantPowers,
		"landlord": compose(tenantPowers, landlordPowers),
		"admin":    compose(tenantPowers, landlordPowers, adminPowers),
	}
}

// DefaultRole is the role of players without an explicit assignment.
const DefaultRole = "player"

func compose(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]string, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}
