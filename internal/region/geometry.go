// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

import "fmt"

// Point is an integer block position.
type Point struct {
	X, Y, Z int
}

// Add returns p shifted by o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Scale multiplies every axis of p by n.
func (p Point) Scale(n int) Point {
	return Point{X: p.X * n, Y: p.Y * n, Z: p.Z * n}
}

func (p Point) String() string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}

// Cuboid is an axis-aligned box with inclusive corners.
type Cuboid struct {
	Min, Max Point
}

// NewCuboid normalizes two arbitrary corners so that Min <= Max on every axis.
func NewCuboid(a, b Point) Cuboid {
	return Cuboid{
		Min: Point{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: Point{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

// Width is the extent along X.
func (c Cuboid) Width() int { return c.Max.X - c.Min.X + 1 }

// Height is the extent along Y.
func (c Cuboid) Height() int { return c.Max.Y - c.Min.Y + 1 }

// Depth is the extent along Z.
func (c Cuboid) Depth() int { return c.Max.Z - c.Min.Z + 1 }

// Shift returns the cuboid translated by offset.
func (c Cuboid) Shift(offset Point) Cuboid {
	return Cuboid{Min: c.Min.Add(offset), Max: c.Max.Add(offset)}
}

// Contains reports whether p lies inside the cuboid.
func (c Cuboid) Contains(p Point) bool {
	return p.X >= c.Min.X && p.X <= c.Max.X &&
		p.Y >= c.Min.Y && p.Y <= c.Max.Y &&
		p.Z >= c.Min.Z && p.Z <= c.Max.Z
}

// Intersects reports whether two cuboids share at least one block.
func (c Cuboid) Intersects(o Cuboid) bool {
	return c.Min.X <= o.Max.X && c.Max.X >= o.Min.X &&
		c.Min.Y <= o.Max.Y && c.Max.Y >= o.Min.Y &&
		c.Min.Z <= o.Max.Z && c.Max.Z >= o.Min.Z
}

func (c Cuboid) String() string {
	return fmt.Sprintf("(%s)-(%s)", c.Min, c.Max)
}
