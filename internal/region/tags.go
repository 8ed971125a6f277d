// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MoneyFormatter renders an amount of currency for players.
type MoneyFormatter func(amount float64) string

func plainMoney(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// ReplacementTags renders the region as a tag map for messages and hooks.
// The result depends only on the region and the supplied layers.
func (r *Region) ReplacementTags(layers Layers, money MoneyFormatter) map[string]string {
	if money == nil {
		money = plainMoney
	}
	tags := map[string]string{
		"region": r.Name,
		"world":  r.World,
		"type":   r.Kind.String(),
		"state":  string(r.State()),
		"player": r.OwnerName(),
		"uuid":   "",
		"groups": strings.Join(r.Groups, ", "),
		"width":  strconv.Itoa(r.Cuboid.Width()),
		"height": strconv.Itoa(r.Cuboid.Height()),
		"depth":  strconv.Itoa(r.Cuboid.Depth()),
	}
	if owner := r.Owner(); owner != uuid.Nil {
		tags["uuid"] = owner.String()
	}

	switch r.Kind {
	case KindRent:
		tags["price"] = money(layers.Float(KeyRentPrice))
		tags["duration"] = FormatDuration(layers.Duration(KeyRentDuration))
		tags["maxextends"] = strconv.Itoa(layers.Int(KeyRentMaxExtends))
		tags["timesextended"] = "0"
		tags["until"] = ""
		if r.Rent != nil {
			tags["timesextended"] = strconv.Itoa(r.Rent.TimesExtended)
			if !r.Rent.RentedUntil.IsZero() {
				tags["until"] = r.Rent.RentedUntil.UTC().Format(time.RFC3339)
			}
		}
	case KindBuy:
		tags["price"] = money(layers.Float(KeyBuyPrice))
		tags["resellprice"] = ""
		if r.Buy != nil && r.Buy.ResellMode {
			tags["resellprice"] = money(r.Buy.ResellPrice)
		}
	}
	return tags
}

// Tags renders r using this registry's settings layers.
func (reg *Registry) Tags(r *Region, money MoneyFormatter) map[string]string {
	return r.ReplacementTags(reg.Layers(r), money)
}

// FormatDuration renders d with the largest whole units, e.g. "1d 2h".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	units := []struct {
		size time.Duration
		name string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	var parts []string
	for _, u := range units {
		if n := d / u.size; n > 0 {
			parts = append(parts, strconv.FormatInt(int64(n), 10)+u.name)
			d -= n * u.size
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}
