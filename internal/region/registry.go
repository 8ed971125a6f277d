// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry is the in-memory set of regions and groups.
// Region names are unique across rent and buy regions, compared case-insensitively.
type Registry struct {
	mu         sync.RWMutex
	global     Settings
	regions    map[string]*Region
	groups     map[string]*Group
	groupOrder []string

	dirty         map[string]struct{}
	deleted       map[string]string
	dirtyGroups   map[string]struct{}
	deletedGroups map[string]string
}

// NewRegistry creates an empty registry using global as the bottom settings layer.
func NewRegistry(global Settings) *Registry {
	return &Registry{
		global:        global,
		regions:       make(map[string]*Region),
		groups:        make(map[string]*Group),
		dirty:         make(map[string]struct{}),
		deleted:       make(map[string]string),
		dirtyGroups:   make(map[string]struct{}),
		deletedGroups: make(map[string]string),
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

// Global returns the global settings layer.
func (reg *Registry) Global() Settings {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.global
}

// SetGlobal replaces the global settings layer.
func (reg *Registry) SetGlobal(s Settings) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.global = s
}

// Add inserts r. The uniqueness check and the insert happen atomically.
// Groups listed on r are created when missing and r is added as a member.
func (reg *Registry) Add(r *Region) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := key(r.Name)
	if _, exists := reg.regions[k]; exists {
		return ErrNameTaken(r.Name)
	}
	reg.regions[k] = r
	delete(reg.deleted, k)
	for _, g := range r.Groups {
		reg.groupOrCreateLocked(g).add(r.Name)
	}
	return nil
}

// Get returns the named region.
func (reg *Registry) Get(name string) (*Region, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.regions[key(name)]
	return r, ok
}

// Exists reports whether a region with that name is registered.
func (reg *Registry) Exists(name string) bool {
	_, ok := reg.Get(name)
	return ok
}

// Remove deletes the named region and its group memberships.
func (reg *Registry) Remove(name string) (*Region, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := key(name)
	r, ok := reg.regions[k]
	if !ok {
		return nil, false
	}
	delete(reg.regions, k)
	delete(reg.dirty, k)
	reg.deleted[k] = r.Name
	for _, g := range r.Groups {
		if group, ok := reg.groups[key(g)]; ok && group.remove(r.Name) {
			reg.dirtyGroups[key(g)] = struct{}{}
		}
	}
	return r, true
}

// Len returns the number of regions.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.regions)
}

// All returns every region ordered by name.
func (reg *Registry) All() []*Region {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return sortedRegions(reg.regions, func(*Region) bool { return true })
}

// Names returns every region name in sorted order.
func (reg *Registry) Names() []string {
	all := reg.All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	return names
}

// OwnedBy returns the regions rented or bought by player, ordered by name.
func (reg *Registry) OwnedBy(player PlayerID) []*Region {
	if player == uuid.Nil {
		return nil
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return sortedRegions(reg.regions, func(r *Region) bool { return r.IsOwnedBy(player) })
}

// CountByState returns the number of regions per state. Region fields are
// owned by the scheduler worker; call it from there.
func (reg *Registry) CountByState() map[string]int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range reg.regions {
		counts[string(r.State())]++
	}
	return counts
}

func sortedRegions(m map[string]*Region, keep func(*Region) bool) []*Region {
	out := make([]*Region, 0, len(m))
	for _, r := range m {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *Region) int {
		return cmp.Compare(key(a.Name), key(b.Name))
	})
	return out
}

// Layers returns the settings layers for r: region, its groups in order, global.
// The result is a fresh snapshot; callers re-resolve it per query.
func (reg *Registry) Layers(r *Region) Layers {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	layers := make(Layers, 0, len(r.Groups)+2)
	layers = append(layers, r.Settings)
	for _, g := range r.Groups {
		if group, ok := reg.groups[key(g)]; ok {
			layers = append(layers, group.Settings)
		}
	}
	return append(layers, reg.global)
}

// AddGroup registers a loaded group. Existing groups keep their members and
// take the new settings.
func (reg *Registry) AddGroup(name string, settings Settings) *Group {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	g := reg.groupOrCreateLocked(name)
	g.Settings = settings
	return g
}

// GroupOrCreate returns the named group, creating an empty one when missing.
func (reg *Registry) GroupOrCreate(name string) *Group {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	k := key(name)
	if g, ok := reg.groups[k]; ok {
		return g
	}
	g := reg.groupOrCreateLocked(name)
	reg.dirtyGroups[k] = struct{}{}
	return g
}

func (reg *Registry) groupOrCreateLocked(name string) *Group {
	k := key(name)
	if g, ok := reg.groups[k]; ok {
		return g
	}
	g := NewGroup(name, Settings{})
	reg.groups[k] = g
	reg.groupOrder = append(reg.groupOrder, k)
	delete(reg.deletedGroups, k)
	return g
}

// Group returns the named group.
func (reg *Registry) Group(name string) (*Group, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	g, ok := reg.groups[key(name)]
	return g, ok
}

// GroupNames returns group names in creation order.
func (reg *Registry) GroupNames() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.groupOrder))
	for _, k := range reg.groupOrder {
		names = append(names, reg.groups[k].Name)
	}
	return names
}

// AddToGroup makes the named region a member of the named group, creating the
// group if needed.
func (reg *Registry) AddToGroup(regionName, groupName string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.regions[key(regionName)]
	if !ok {
		return ErrRegionNotFound(regionName)
	}
	gk := key(groupName)
	if _, exists := reg.groups[gk]; !exists {
		reg.dirtyGroups[gk] = struct{}{}
	}
	g := reg.groupOrCreateLocked(groupName)
	if g.add(r.Name) {
		reg.dirtyGroups[gk] = struct{}{}
	}
	if !r.InGroup(g.Name) {
		r.Groups = append(r.Groups, g.Name)
		reg.dirty[key(r.Name)] = struct{}{}
	}
	return nil
}

// RemoveFromGroup drops the named region from the named group.
func (reg *Registry) RemoveFromGroup(regionName, groupName string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	g, ok := reg.groups[key(groupName)]
	if !ok || !g.remove(regionName) {
		return false
	}
	reg.dirtyGroups[key(groupName)] = struct{}{}
	if r, ok := reg.regions[key(regionName)]; ok {
		r.Groups = slices.DeleteFunc(r.Groups, func(n string) bool {
			return strings.EqualFold(n, groupName)
		})
		reg.dirty[key(r.Name)] = struct{}{}
	}
	return true
}

// DeleteGroup removes a group and detaches its members.
func (reg *Registry) DeleteGroup(name string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := key(name)
	g, ok := reg.groups[k]
	if !ok {
		return false
	}
	for _, member := range g.members {
		r, ok := reg.regions[key(member)]
		if !ok {
			continue
		}
		r.Groups = slices.DeleteFunc(r.Groups, func(n string) bool {
			return strings.EqualFold(n, name)
		})
		reg.dirty[key(r.Name)] = struct{}{}
	}
	delete(reg.groups, k)
	reg.groupOrder = slices.DeleteFunc(reg.groupOrder, func(n string) bool { return n == k })
	delete(reg.dirtyGroups, k)
	reg.deletedGroups[k] = g.Name
	return true
}

// MarkDirty flags the named region for persistence. Repeated calls before the
// next drain have no extra effect.
func (reg *Registry) MarkDirty(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	k := key(name)
	if _, ok := reg.regions[k]; ok {
		reg.dirty[k] = struct{}{}
	}
}

// Changes is a batch of pending persistence work.
type Changes struct {
	Regions       []*Region
	Deleted       []string
	Groups        []GroupSnapshot
	DeletedGroups []string
}

// Empty reports whether the batch carries no work.
func (c Changes) Empty() bool {
	return len(c.Regions) == 0 && len(c.Deleted) == 0 &&
		len(c.Groups) == 0 && len(c.DeletedGroups) == 0
}

// DrainDirty returns detached copies of everything changed since the last drain
// and resets the dirty sets.
func (reg *Registry) DrainDirty() Changes {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var c Changes
	for k := range reg.dirty {
		if r, ok := reg.regions[k]; ok {
			c.Regions = append(c.Regions, r.Clone())
		}
	}
	for _, name := range reg.deleted {
		c.Deleted = append(c.Deleted, name)
	}
	for k := range reg.dirtyGroups {
		if g, ok := reg.groups[k]; ok {
			c.Groups = append(c.Groups, GroupSnapshot{
				Name:     g.Name,
				Settings: g.Settings,
				Members:  g.Members(),
			})
		}
	}
	for _, name := range reg.deletedGroups {
		c.DeletedGroups = append(c.DeletedGroups, name)
	}
	slices.SortFunc(c.Regions, func(a, b *Region) int { return cmp.Compare(a.Name, b.Name) })
	slices.Sort(c.Deleted)
	slices.SortFunc(c.Groups, func(a, b GroupSnapshot) int { return cmp.Compare(a.Name, b.Name) })
	slices.Sort(c.DeletedGroups)

	clear(reg.dirty)
	clear(reg.deleted)
	clear(reg.dirtyGroups)
	clear(reg.deletedGroups)
	return c
}

// Requeue puts a failed batch back so the next drain retries it. Regions that
// were deleted in the meantime are dropped.
func (reg *Registry) Requeue(c Changes) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, r := range c.Regions {
		if _, ok := reg.regions[key(r.Name)]; ok {
			reg.dirty[key(r.Name)] = struct{}{}
		}
	}
	for _, name := range c.Deleted {
		if _, back := reg.regions[key(name)]; !back {
			reg.deleted[key(name)] = name
		}
	}
	for _, g := range c.Groups {
		if _, ok := reg.groups[key(g.Name)]; ok {
			reg.dirtyGroups[key(g.Name)] = struct{}{}
		}
	}
	for _, name := range c.DeletedGroups {
		if _, back := reg.groups[key(name)]; !back {
			reg.deletedGroups[key(name)] = name
		}
	}
}
