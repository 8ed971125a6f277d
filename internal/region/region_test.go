// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/pkg/errutil"
)

var testCuboid = region.NewCuboid(region.Point{X: 0, Y: 64, Z: 0}, region.Point{X: 9, Y: 70, Z: 9})

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    region.Kind
		wantErr bool
	}{
		{"rent", region.KindRent, false},
		{"BUY", region.KindBuy, false},
		{" Rent ", region.KindRent, false},
		{"lease", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := region.ParseKind(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, region.CodeInvalidKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegion_State(t *testing.T) {
	player := uuid.New()

	t.Run("rent regions", func(t *testing.T) {
		r := region.New("r1", "world", region.KindRent, testCuboid, time.Now())
		assert.Equal(t, region.StateForRent, r.State())

		r.SetOwner(player, "alice")
		assert.Equal(t, region.StateRented, r.State())
	})

	t.Run("buy regions", func(t *testing.T) {
		r := region.New("b1", "world", region.KindBuy, testCuboid, time.Now())
		assert.Equal(t, region.StateForSale, r.State())

		r.SetOwner(player, "alice")
		assert.Equal(t, region.StateSold, r.State())

		r.EnableResell(50)
		assert.Equal(t, region.StateResell, r.State())

		r.DisableResell()
		assert.Equal(t, region.StateSold, r.State())
	})
}

func TestRegion_SetOwnerNilClearsPerOwnerFields(t *testing.T) {
	player := uuid.New()

	t.Run("rent", func(t *testing.T) {
		r := region.New("r1", "world", region.KindRent, testCuboid, time.Now())
		r.SetOwner(player, "alice")
		r.Rent.RentedUntil = time.Now().Add(time.Hour)
		r.Rent.TimesExtended = 3
		r.Rent.LastWarning = r.Rent.RentedUntil

		r.SetOwner(uuid.Nil, "ignored")

		assert.Equal(t, uuid.Nil, r.Owner())
		assert.Empty(t, r.OwnerName())
		assert.True(t, r.Rent.RentedUntil.IsZero())
		assert.Zero(t, r.Rent.TimesExtended)
		assert.True(t, r.Rent.LastWarning.IsZero())
	})

	t.Run("buy", func(t *testing.T) {
		r := region.New("b1", "world", region.KindBuy, testCuboid, time.Now())
		r.SetOwner(player, "alice")
		r.EnableResell(120)

		r.SetOwner(uuid.Nil, "")

		assert.False(t, r.IsOwned())
		assert.False(t, r.Buy.ResellMode)
		assert.Zero(t, r.Buy.ResellPrice)
	})
}

func TestRegion_IsOwnedBy(t *testing.T) {
	player := uuid.New()
	r := region.New("b1", "world", region.KindBuy, testCuboid, time.Now())

	assert.False(t, r.IsOwnedBy(uuid.Nil), "nobody owns an unowned region")
	r.SetOwner(player, "alice")
	assert.True(t, r.IsOwnedBy(player))
	assert.False(t, r.IsOwnedBy(uuid.New()))
}

func TestRegion_Friends(t *testing.T) {
	r := region.New("b1", "world", region.KindBuy, testCuboid, time.Now())
	friend := uuid.New()

	r.AddFriend(friend)
	r.AddFriend(friend)
	r.AddFriend(uuid.Nil)

	assert.Len(t, r.Friends, 1)
	assert.True(t, r.IsFriend(friend))

	r.ClearFriends()
	assert.Empty(t, r.Friends)
}

func TestRegion_CloneIsDetached(t *testing.T) {
	r := region.New("b1", "world", region.KindBuy, testCuboid, time.Now())
	r.Groups = []string{"market"}
	r.SetOwner(uuid.New(), "alice")

	c := r.Clone()
	c.Groups[0] = "changed"
	c.Buy.BuyerName = "bob"

	assert.Equal(t, "market", r.Groups[0])
	assert.Equal(t, "alice", r.Buy.BuyerName)
}

func TestCuboid(t *testing.T) {
	c := region.NewCuboid(region.Point{X: 9, Y: 70, Z: -5}, region.Point{X: 0, Y: 64, Z: 4})

	assert.Equal(t, region.Point{X: 0, Y: 64, Z: -5}, c.Min)
	assert.Equal(t, region.Point{X: 9, Y: 70, Z: 4}, c.Max)
	assert.Equal(t, 10, c.Width())
	assert.Equal(t, 7, c.Height())
	assert.Equal(t, 10, c.Depth())
	assert.True(t, c.Contains(region.Point{X: 5, Y: 65, Z: 0}))
	assert.False(t, c.Contains(region.Point{X: 10, Y: 65, Z: 0}))

	shifted := c.Shift(region.Point{X: 12})
	assert.False(t, c.Intersects(shifted))
	assert.True(t, c.Intersects(c.Shift(region.Point{X: 9})))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "plot01", false},
		{"dashes and underscores", "market-row_2", false},
		{"empty", "", true},
		{"spaces", "my plot", true},
		{"too long", string(make([]byte, region.MaxNameLength+1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := region.ValidateName(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, region.CodeInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
