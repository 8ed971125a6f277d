// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package region holds the land-claim domain model: regions for rent or sale,
// region groups, layered settings and the in-memory registry.
package region

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// PlayerID identifies a player. uuid.Nil means "no player".
type PlayerID = uuid.UUID

// Kind distinguishes rentable regions from regions for sale.
type Kind string

// Region kinds.
const (
	KindRent Kind = "rent"
	KindBuy  Kind = "buy"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindRent):
		return KindRent, nil
	case string(KindBuy):
		return KindBuy, nil
	default:
		return "", oops.Code(CodeInvalidKind).With("kind", s).Errorf("unknown region kind %q", s)
	}
}

// State is the derived lifecycle state of a region. It is never stored.
type State string

// Region states.
const (
	StateForRent State = "for_rent"
	StateRented  State = "rented"
	StateForSale State = "for_sale"
	StateSold    State = "sold"
	StateResell  State = "resell"
)

// RentState is the rent-specific payload of a region.
type RentState struct {
	Renter        PlayerID
	RenterName    string
	RentedUntil   time.Time
	TimesExtended int
	// LastWarning is the RentedUntil value the last expiry warning was sent for.
	LastWarning time.Time
}

// BuyState is the buy-specific payload of a region.
type BuyState struct {
	Buyer       PlayerID
	BuyerName   string
	ResellMode  bool
	ResellPrice float64
}

// Region is a named cuboid that can be rented or bought.
// Exactly one of Rent and Buy is non-nil, matching Kind.
type Region struct {
	Name      string
	World     string
	Kind      Kind
	Cuboid    Cuboid
	Groups    []string
	Settings  Settings
	Friends   []PlayerID
	CreatedAt time.Time

	Rent *RentState
	Buy  *BuyState
}

// New returns an unowned region of the given kind.
func New(name, world string, kind Kind, cuboid Cuboid, createdAt time.Time) *Region {
	r := &Region{
		Name:      name,
		World:     world,
		Kind:      kind,
		Cuboid:    cuboid,
		CreatedAt: createdAt,
	}
	switch kind {
	case KindRent:
		r.Rent = &RentState{}
	case KindBuy:
		r.Buy = &BuyState{}
	}
	return r
}

// State derives the lifecycle state from the payload.
func (r *Region) State() State {
	switch {
	case r.Rent != nil:
		if r.Rent.Renter != uuid.Nil {
			return StateRented
		}
		return StateForRent
	case r.Buy != nil:
		if r.Buy.Buyer == uuid.Nil {
			return StateForSale
		}
		if r.Buy.ResellMode {
			return StateResell
		}
		return StateSold
	default:
		return ""
	}
}

// Owner returns the renter or buyer, or uuid.Nil.
func (r *Region) Owner() PlayerID {
	switch {
	case r.Rent != nil:
		return r.Rent.Renter
	case r.Buy != nil:
		return r.Buy.Buyer
	default:
		return uuid.Nil
	}
}

// OwnerName returns the last known name of the owner.
func (r *Region) OwnerName() string {
	switch {
	case r.Rent != nil:
		return r.Rent.RenterName
	case r.Buy != nil:
		return r.Buy.BuyerName
	default:
		return ""
	}
}

// IsOwned reports whether somebody rents or owns the region.
func (r *Region) IsOwned() bool {
	return r.Owner() != uuid.Nil
}

// IsOwnedBy reports whether id rents or owns the region.
func (r *Region) IsOwnedBy(id PlayerID) bool {
	return id != uuid.Nil && r.Owner() == id
}

// SetOwner records a new owner. Passing uuid.Nil clears the owner together with
// every per-owner field of the payload.
func (r *Region) SetOwner(id PlayerID, name string) {
	if id == uuid.Nil {
		name = ""
	}
	switch {
	case r.Rent != nil:
		r.Rent.Renter = id
		r.Rent.RenterName = name
		if id == uuid.Nil {
			r.Rent.RentedUntil = time.Time{}
			r.Rent.TimesExtended = 0
			r.Rent.LastWarning = time.Time{}
		}
	case r.Buy != nil:
		r.Buy.Buyer = id
		r.Buy.BuyerName = name
		if id == uuid.Nil {
			r.Buy.ResellMode = false
			r.Buy.ResellPrice = 0
		}
	}
}

// EnableResell puts a sold region back on the market at price.
func (r *Region) EnableResell(price float64) {
	if r.Buy == nil {
		return
	}
	r.Buy.ResellMode = true
	r.Buy.ResellPrice = price
}

// DisableResell takes a region off the resell market.
func (r *Region) DisableResell() {
	if r.Buy == nil {
		return
	}
	r.Buy.ResellMode = false
	r.Buy.ResellPrice = 0
}

// IsFriend reports whether id was added as a friend of the owner.
func (r *Region) IsFriend(id PlayerID) bool {
	return slices.Contains(r.Friends, id)
}

// AddFriend adds id to the friend list. Duplicates are ignored.
func (r *Region) AddFriend(id PlayerID) {
	if id == uuid.Nil || r.IsFriend(id) {
		return
	}
	r.Friends = append(r.Friends, id)
}

// ClearFriends empties the friend list.
func (r *Region) ClearFriends() {
	r.Friends = nil
}

// InGroup reports whether the region is a member of the named group.
func (r *Region) InGroup(group string) bool {
	return slices.ContainsFunc(r.Groups, func(g string) bool {
		return strings.EqualFold(g, group)
	})
}

// Clone returns a deep copy suitable for handing to another goroutine.
func (r *Region) Clone() *Region {
	c := *r
	c.Groups = slices.Clone(r.Groups)
	c.Friends = slices.Clone(r.Friends)
	if r.Rent != nil {
		rent := *r.Rent
		c.Rent = &rent
	}
	if r.Buy != nil {
		buy := *r.Buy
		c.Buy = &buy
	}
	return &c
}
