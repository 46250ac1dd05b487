package geom

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// MinExtent is the smallest size an axis may have when it is used as a divisor.
const MinExtent float32 = 1e-4

type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// Empty returns an inverted box that any Encapsulate call will replace.
func Empty() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: rl.Vector3{X: inf, Y: inf, Z: inf},
		Max: rl.Vector3{X: -inf, Y: -inf, Z: -inf},
	}
}

// NewAABBFromCenter creates an AABB from a center point and full size dimensions.
func NewAABBFromCenter(center, size rl.Vector3) AABB {
	half := rl.Vector3{X: size.X / 2, Y: size.Y / 2, Z: size.Z / 2}
	return AABB{
		Min: rl.Vector3Subtract(center, half),
		Max: rl.Vector3Add(center, half),
	}
}

// FromPoints returns the smallest box holding every point.
func FromPoints(points ...rl.Vector3) AABB {
	b := Empty()
	for _, p := range points {
		b.Min = vmin(b.Min, p)
		b.Max = vmax(b.Max, p)
	}
	return b
}

func (a AABB) IsEmpty() bool {
	return a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z
}

// Encapsulate returns the union of a and b.
func (a AABB) Encapsulate(b AABB) AABB {
	if b.IsEmpty() {
		return a
	}
	if a.IsEmpty() {
		return b
	}
	return AABB{
		Min: vmin(a.Min, b.Min),
		Max: vmax(a.Max, b.Max),
	}
}

func (a AABB) Center() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Add(a.Min, a.Max), 0.5)
}

func (a AABB) Size() rl.Vector3 {
	return rl.Vector3Subtract(a.Max, a.Min)
}

func (a AABB) Extents() rl.Vector3 {
	return rl.Vector3Scale(a.Size(), 0.5)
}

// SafeSize is Size with every axis raised to at least MinExtent.
func (a AABB) SafeSize() rl.Vector3 {
	s := a.Size()
	return rl.Vector3{X: atLeast(s.X), Y: atLeast(s.Y), Z: atLeast(s.Z)}
}

// SafeExtents is half of SafeSize.
func (a AABB) SafeExtents() rl.Vector3 {
	return rl.Vector3Scale(a.SafeSize(), 0.5)
}

func (a AABB) Translate(v rl.Vector3) AABB {
	return AABB{Min: rl.Vector3Add(a.Min, v), Max: rl.Vector3Add(a.Max, v)}
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

func (a AABB) Contains(p rl.Vector3) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

// Corners returns the eight box corners, bottom face first.
func (a AABB) Corners() [8]rl.Vector3 {
	return [8]rl.Vector3{
		{X: a.Min.X, Y: a.Min.Y, Z: a.Min.Z},
		{X: a.Max.X, Y: a.Min.Y, Z: a.Min.Z},
		{X: a.Max.X, Y: a.Min.Y, Z: a.Max.Z},
		{X: a.Min.X, Y: a.Min.Y, Z: a.Max.Z},
		{X: a.Min.X, Y: a.Max.Y, Z: a.Min.Z},
		{X: a.Max.X, Y: a.Max.Y, Z: a.Min.Z},
		{X: a.Max.X, Y: a.Max.Y, Z: a.Max.Z},
		{X: a.Min.X, Y: a.Max.Y, Z: a.Max.Z},
	}
}

func atLeast(v float32) float32 {
	if v < MinExtent {
		return MinExtent
	}
	return v
}

func vmin(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

func vmax(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}
