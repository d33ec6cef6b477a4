package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// WorldAxes are the unit axes an AABB overlap can be reported on, indexed X, Y, Z.
var WorldAxes = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// NewAABB builds a box from a center point and half extents.
func NewAABB(center, halfExtent mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(halfExtent), Max: center.Add(halfExtent)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Transform returns the axis-aligned box enclosing all eight corners of b after transformation by m.
//
// Parameters:
//   - m: an affine transform
//
// Returns:
//   - AABB: the enclosing world box
func (b AABB) Transform(m mgl32.Mat4) AABB {
	out := AABB{
		Min: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for i := 0; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		p := mgl32.TransformCoordinate(corner, m)
		for a := 0; a < 3; a++ {
			out.Min[a] = min(out.Min[a], p[a])
			out.Max[a] = max(out.Max[a], p[a])
		}
	}
	return out
}

// Overlaps reports whether the two boxes intersect with positive volume. Touching faces do not overlap.
func (b AABB) Overlaps(o AABB) bool {
	for a := 0; a < 3; a++ {
		if b.Max[a] <= o.Min[a] || o.Max[a] <= b.Min[a] {
			return false
		}
	}
	return true
}

// Penetration returns the overlap depth along each axis. Components are only meaningful when Overlaps is true.
func (b AABB) Penetration(o AABB) mgl32.Vec3 {
	var depth mgl32.Vec3
	for a := 0; a < 3; a++ {
		depth[a] = min(b.Max[a], o.Max[a]) - max(b.Min[a], o.Min[a])
	}
	return depth
}
