// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package stack

import (
	"math"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/plotshop/internal/region"
)

// Facing is one of the six axis-aligned stacking directions.
type Facing int

// Facings. South is +Z and East is +X.
const (
	North Facing = iota
	East
	South
	West
	Up
	Down
)

var facingNames = map[Facing]string{
	North: "north",
	East:  "east",
	South: "south",
	West:  "west",
	Up:    "up",
	Down:  "down",
}

// String returns the lowercase direction name.
func (f Facing) String() string {
	if name, ok := facingNames[f]; ok {
		return name
	}
	return "unknown"
}

// Unit returns the unit vector pointing in the facing direction.
func (f Facing) Unit() region.Point {
	switch f {
	case North:
		return region.Point{Z: -1}
	case East:
		return region.Point{X: 1}
	case South:
		return region.Point{Z: 1}
	case West:
		return region.Point{X: -1}
	case Up:
		return region.Point{Y: 1}
	case Down:
		return region.Point{Y: -1}
	default:
		return region.Point{}
	}
}

// extent returns the size of c along the facing axis.
func (f Facing) extent(c region.Cuboid) int {
	switch f {
	case North, South:
		return c.Depth()
	case East, West:
		return c.Width()
	default:
		return c.Height()
	}
}

// ParseFacing parses a direction name.
func ParseFacing(s string) (Facing, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range facingNames {
		if n == name {
			return f, nil
		}
	}
	return 0, oops.In("stack").
		Code(CodeUnclearDirection).
		With("direction", s).
		With("message", "Unknown direction "+s+".").
		Errorf("unknown facing %q", s)
}

// octants are the compass names of yaw rounded to 45 degrees, starting at
// yaw 0 and turning clockwise.
var octants = [8]string{"south", "south-west", "west", "north-west", "north", "north-east", "east", "south-east"}

// FacingFromView derives the facing from a view direction in degrees. A pitch
// steeper than 45 degrees selects Down or Up. Otherwise the yaw, rounded to the
// nearest 45 degrees, has to be a cardinal direction: yaw 0 looks south, 90 west,
// 180 north and 270 east. Diagonal aims and non-finite angles are rejected.
func FacingFromView(yaw, pitch float64) (Facing, error) {
	if !finite(yaw) || !finite(pitch) {
		return 0, oops.In("stack").
			Code(CodeUnclearDirection).
			With("direction", "unknown").
			With("yaw", yaw).
			With("pitch", pitch).
			With("message", "You are not facing any direction; face one direction clearly.").
			Errorf("non-finite view yaw=%v pitch=%v", yaw, pitch)
	}
	switch {
	case pitch > 45:
		return Down, nil
	case pitch < -45:
		return Up, nil
	}
	yaw = math.Mod(yaw, 360)
	if yaw < 0 {
		yaw += 360
	}
	octant := int(math.Round(yaw/45)) & 7
	switch octant {
	case 0:
		return South, nil
	case 2:
		return West, nil
	case 4:
		return North, nil
	case 6:
		return East, nil
	}
	direction := octants[octant]
	return 0, oops.In("stack").
		Code(CodeUnclearDirection).
		With("direction", direction).
		With("yaw", yaw).
		With("message", "You are looking "+direction+"; face one direction clearly.").
		Errorf("ambiguous facing %s", direction)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ShiftVector returns the offset between two consecutive stacked regions: the
// selection extent along the facing axis plus gap, pointing along facing.
func ShiftVector(selection region.Cuboid, f Facing, gap int) region.Point {
	return f.Unit().Scale(f.extent(selection) + gap)
}
