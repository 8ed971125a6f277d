// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import (
	"slices"
	"strings"
)

// Group is a named, ordered set of regions sharing a settings layer.
type Group struct {
	Name     string
	Settings Settings
	members  []string
}

// NewGroup returns an empty group.
func NewGroup(name string, settings Settings) *Group {
	return &Group{Name: name, Settings: settings}
}

// Members returns the member region names in insertion order.
func (g *Group) Members() []string {
	return slices.Clone(g.members)
}

// Has reports whether the named region is a member.
func (g *Group) Has(regionName string) bool {
	return slices.IndexFunc(g.members, func(m string) bool {
		return strings.EqualFold(m, regionName)
	}) >= 0
}

func (g *Group) add(regionName string) bool {
	if g.Has(regionName) {
		return false
	}
	g.members = append(g.members, regionName)
	return true
}

func (g *Group) remove(regionName string) bool {
	idx := slices.IndexFunc(g.members, func(m string) bool {
		return strings.EqualFold(m, regionName)
	})
	if idx < 0 {
		return false
	}
	g.members = slices.Delete(g.members, idx, idx+1)
	return true
}

// GroupSnapshot is a detached copy of a group handed to persistence.
type GroupSnapshot struct {
	Name     string
	Settings Settings
	Members  []string
}
